package chords

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadNote is returned for note names that cannot be converted
var ErrBadNote = errors.New("invalid note name")

// naturals maps a note letter to its MIDI number in octave 4
var naturals = map[byte]Note{
	'c': 60,
	'd': 62,
	'e': 64,
	'f': 65,
	'g': 67,
	'a': 69,
	'b': 71,
}

// DefaultOctave is used when a note name carries no octave digits
const DefaultOctave = 4

// ParseNote converts a note name such as "c4", "F#3" or "as" into a MIDI number.
// The name is a letter a..g, an optional sharp marker ('#' or 's') and an
// optional octave (default 4), in any order after the letter. The result is not
// range checked.
func ParseNote(name string) (Note, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrBadNote)
	}

	base, ok := naturals[s[0]]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadNote, name)
	}

	rest := s[1:]
	sharp := strings.ContainsAny(rest, "#s")
	if sharp {
		if strings.Count(rest, "#")+strings.Count(rest, "s") > 1 {
			return 0, fmt.Errorf("%w: %q has more than one sharp", ErrBadNote, name)
		}
		rest = strings.NewReplacer("#", "", "s", "").Replace(rest)
	}

	octave := DefaultOctave
	if rest != "" {
		n, err := strconv.Atoi(rest)
		if err != nil {
			return 0, fmt.Errorf("%w: %q has bad octave", ErrBadNote, name)
		}
		octave = n
	}

	n := base + Note(12*(octave-DefaultOctave))
	if sharp {
		n++
	}
	return n, nil
}

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Name renders n in scientific pitch notation (60 = C4)
func (n Note) Name() string {
	if !n.Valid() {
		return fmt.Sprintf("?%d", int(n))
	}
	return fmt.Sprintf("%s%d", pitchNames[n%12], int(n)/12-1)
}

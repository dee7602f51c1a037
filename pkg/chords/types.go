// Package chords provides the finger-to-chord mapping table and its loader
package chords

import (
	"fmt"
	"strings"
)

// Hand identifies the left or right hand as reported by the hand tracker
type Hand int

const (
	Left Hand = iota
	Right
)

// NumHands is the number of hands the table can map
const NumHands = 2

// Hands lists both hands in canonical order
var Hands = [NumHands]Hand{Left, Right}

var handNames = [NumHands]string{"left", "right"}

// String returns the lower-case hand name used in mapping files
func (h Hand) String() string {
	if h < 0 || int(h) >= NumHands {
		return fmt.Sprintf("hand(%d)", int(h))
	}
	return handNames[h]
}

// Title returns the capitalised hand name used in display labels
func (h Hand) Title() string {
	return title(h.String())
}

// ParseHand parses a hand name case-insensitively
func ParseHand(s string) (Hand, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range handNames {
		if s == name {
			return Hand(i), true
		}
	}
	return 0, false
}

// Finger identifies one of the five canonical fingers
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// NumFingers is the length of a finger-up vector
const NumFingers = 5

// Fingers lists the fingers in the order hand trackers report them
var Fingers = [NumFingers]Finger{Thumb, Index, Middle, Ring, Pinky}

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

// String returns the lower-case finger name used in mapping files
func (f Finger) String() string {
	if f < 0 || int(f) >= NumFingers {
		return fmt.Sprintf("finger(%d)", int(f))
	}
	return fingerNames[f]
}

// Title returns the capitalised finger name used in display labels
func (f Finger) Title() string {
	return title(f.String())
}

// ParseFinger parses a finger name case-insensitively
func ParseFinger(s string) (Finger, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range fingerNames {
		if s == name {
			return Finger(i), true
		}
	}
	return 0, false
}

// Key addresses one finger of one hand
type Key struct {
	Hand   Hand
	Finger Finger
}

func (k Key) String() string {
	return k.Hand.String() + "/" + k.Finger.String()
}

// Note is a MIDI note number. Only values in [MinNote, MaxNote] are ever sent.
type Note int

const (
	MinNote Note = 0
	MaxNote Note = 127
)

// Valid reports whether n fits in a MIDI data byte
func (n Note) Valid() bool {
	return n >= MinNote && n <= MaxNote
}

// Chord is the ordered set of notes one finger triggers
type Chord struct {
	Name  string // display name from the mapping source, e.g. "C Major"
	Notes []Note // declared order; callers must not modify
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

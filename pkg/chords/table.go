package chords

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Load errors. ErrNoSource and ErrEmptyTable are fatal at startup; the row
// errors are reported as diagnostics and the row is skipped.
var (
	ErrNoSource      = errors.New("chord mapping source not found")
	ErrEmptyTable    = errors.New("chord mapping has no usable rows")
	ErrArity         = errors.New("wrong number of fields")
	ErrUnknownHand   = errors.New("unknown hand")
	ErrUnknownFinger = errors.New("unknown finger")
	ErrNoNotes       = errors.New("no valid notes")
)

// RowFields is the number of fields a mapping row must have:
// hand,finger,chord_name,note1,note2,note3
const RowFields = 6

// maxLine bounds one mapping line
const maxLine = 64 * 1024

// RowError describes a mapping row that was skipped
type RowError struct {
	Line int
	Text string
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Entry is one populated cell of the table
type Entry struct {
	Key
	Chord
	Label string // e.g. "C Major (Left Thumb)"
}

type cell struct {
	chord Chord
	label string
	ok    bool
}

// Table maps (hand, finger) to a chord. It is immutable once loaded and safe
// for concurrent readers.
type Table struct {
	cells       [NumHands][NumFingers]cell
	size        int
	diagnostics []RowError
}

// Lookup returns the chord mapped to key
func (t *Table) Lookup(key Key) (Chord, bool) {
	if !key.inRange() {
		return Chord{}, false
	}
	c := t.cells[key.Hand][key.Finger]
	return c.chord, c.ok
}

// Has reports whether key has a chord
func (t *Table) Has(key Key) bool {
	return key.inRange() && t.cells[key.Hand][key.Finger].ok
}

// Label returns the display label for key, or "" if key is unmapped
func (t *Table) Label(key Key) string {
	if !key.inRange() {
		return ""
	}
	return t.cells[key.Hand][key.Finger].label
}

// Len returns the number of mapped fingers
func (t *Table) Len() int {
	return t.size
}

// Entries returns the mapped fingers in hand, finger order
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, t.size)
	for _, h := range Hands {
		for _, f := range Fingers {
			c := t.cells[h][f]
			if c.ok {
				out = append(out, Entry{Key: Key{h, f}, Chord: c.chord, Label: c.label})
			}
		}
	}
	return out
}

// Diagnostics returns the rows skipped while loading
func (t *Table) Diagnostics() []RowError {
	return append([]RowError(nil), t.diagnostics...)
}

func (k Key) inRange() bool {
	return k.Hand >= 0 && int(k.Hand) < NumHands && k.Finger >= 0 && int(k.Finger) < NumFingers
}

// LoadFile opens path and loads it with Load
func LoadFile(path string, logger *log.Logger) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSource, err)
	}
	defer f.Close()

	t, err := Load(f, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Load reads a comma separated mapping source. The first line is a header and
// is skipped. Each line is checked on its own: bad rows are logged, recorded
// in Diagnostics and skipped; only an unreadable source or an empty result is
// an error. A later row for the same finger replaces an earlier one.
func Load(r io.Reader, logger *log.Logger) (*Table, error) {
	if logger == nil {
		logger = log.Default()
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)

	t := &Table{}
	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			continue
		}
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		entry, bad, rowErr := parseRow(strings.Split(text, ","))
		for _, b := range bad {
			t.diagnostics = append(t.diagnostics, RowError{Line: line, Text: b, Err: ErrBadNote})
			logger.Warn("chords: dropping note", "line", line, "note", b)
		}
		if rowErr != nil {
			t.reject(logger, RowError{Line: line, Text: text, Err: rowErr})
			continue
		}

		c := &t.cells[entry.Hand][entry.Finger]
		if c.ok {
			logger.Debug("chords: row replaces earlier mapping", "line", line, "key", entry.Key)
		} else {
			t.size++
		}
		*c = cell{chord: entry.Chord, label: entry.Label, ok: true}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read chord mapping: %w", err)
	}

	if t.size == 0 {
		return nil, ErrEmptyTable
	}
	logger.Debug("chords: table loaded", "entries", t.size, "skipped", len(t.diagnostics))
	return t, nil
}

func (t *Table) reject(logger *log.Logger, re RowError) {
	t.diagnostics = append(t.diagnostics, re)
	logger.Warn("chords: skipping row", "line", re.Line, "err", re.Err, "row", re.Text)
}

// parseRow converts one record. bad lists note names that were dropped.
func parseRow(rec []string) (Entry, []string, error) {
	if len(rec) != RowFields {
		return Entry{}, nil, fmt.Errorf("%w: got %d, want %d", ErrArity, len(rec), RowFields)
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}

	hand, ok := ParseHand(rec[0])
	if !ok {
		return Entry{}, nil, fmt.Errorf("%w: %q", ErrUnknownHand, rec[0])
	}
	finger, ok := ParseFinger(rec[1])
	if !ok {
		return Entry{}, nil, fmt.Errorf("%w: %q", ErrUnknownFinger, rec[1])
	}

	var notes []Note
	var bad []string
	for _, name := range rec[3:] {
		if name == "" {
			continue
		}
		n, err := ParseNote(name)
		if err != nil {
			bad = append(bad, name)
			continue
		}
		notes = append(notes, n)
	}
	if len(notes) == 0 {
		return Entry{}, bad, ErrNoNotes
	}

	key := Key{Hand: hand, Finger: finger}
	return Entry{
		Key:   key,
		Chord: Chord{Name: rec[2], Notes: notes},
		Label: fmt.Sprintf("%s (%s %s)", rec[2], hand.Title(), finger.Title()),
	}, bad, nil
}


// Package output provides note output ports: a real MIDI out, a dry-run
// logger and a recorder that writes the performance to a MIDI file
package output

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDevice is returned when no MIDI output port can be opened. The
	// session cannot start without one.
	ErrNoDevice = errors.New("no MIDI output device")
	// ErrClosed is returned for sends after Close.
	ErrClosed = errors.New("output port closed")
)

// Port accepts note and instrument commands. Implementations must be safe for
// concurrent use: note-ons come from the session loop while delayed note-offs
// come from release goroutines. Close must be safe to call more than once.
type Port interface {
	SelectInstrument(program uint8) error
	NoteOn(note, velocity uint8) error
	NoteOff(note, velocity uint8) error
	Close() error
}

// Instrument is a General MIDI program with a display name
type Instrument struct {
	Program uint8  `yaml:"program" json:"program"`
	Name    string `yaml:"name" json:"name"`
}

func (i Instrument) String() string {
	return fmt.Sprintf("%s (program %d)", i.Name, i.Program)
}

// DefaultInstruments is the instrument cycle used when none is configured
var DefaultInstruments = []Instrument{
	{Program: 0, Name: "Acoustic Grand Piano"},
	{Program: 24, Name: "Acoustic Guitar (nylon)"},
	{Program: 40, Name: "Violin"},
	{Program: 48, Name: "String Ensemble 1"},
	{Program: 81, Name: "Lead Square Wave (Synth)"},
}

// MaxData is the largest value a MIDI data byte can carry
const MaxData = 127

func checkData(what string, v uint8) error {
	if v > MaxData {
		return fmt.Errorf("%s %d out of range 0-%d", what, v, MaxData)
	}
	return nil
}

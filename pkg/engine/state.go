// Package engine turns per-frame finger states into MIDI note and instrument
// events: edge detection, chord scheduling with sustain, and the two-hand
// instrument switch gesture.
package engine

import (
	"time"

	"github.com/james-see/handchords/pkg/chords"
)

// FingerStates holds the last sampled up/down state of every finger
type FingerStates [chords.NumHands][chords.NumFingers]bool

// Up reports the stored state for key
func (f FingerStates) Up(key chords.Key) bool {
	return f[key.Hand][key.Finger]
}

// HoldState is the instrument gesture state. The zero value is Inactive.
// Spent marks a hold that already switched instrument; it stays Inactive
// until the pose is broken.
type HoldState struct {
	Active bool
	Since  time.Time
	Spent  bool
}

// State is all mutable session state. It is owned by the session loop and
// handed by pointer to the detector, scheduler and recognizer; nothing else
// writes it.
type State struct {
	Fingers    FingerStates
	Hold       HoldState
	Instrument int    // index into the instrument list
	Label      string // label of the last triggered chord, "" when cleared
}

package engine

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/hands"
	"github.com/james-see/handchords/pkg/output"
)

// DefaultHoldThreshold is how long both open hands must be held to switch
// instrument
const DefaultHoldThreshold = 500 * time.Millisecond

// Recognizer watches for both hands held fully open and advances the
// instrument once the hold reaches the threshold. One continuous hold
// switches once; the hands must leave the pose before the next switch.
type Recognizer struct {
	state       *State
	port        output.Port
	instruments []output.Instrument
	threshold   time.Duration
	logger      *log.Logger
}

// NewRecognizer returns a recognizer reading and writing state.Hold and
// state.Instrument
func NewRecognizer(state *State, port output.Port, instruments []output.Instrument, threshold time.Duration, logger *log.Logger) *Recognizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Recognizer{
		state:       state,
		port:        port,
		instruments: instruments,
		threshold:   threshold,
		logger:      logger,
	}
}

// Observe feeds one frame and reports whether the instrument changed
func (r *Recognizer) Observe(snap hands.Snapshot, now time.Time) bool {
	if !bothOpen(snap) {
		if r.state.Hold.Active {
			r.logger.Debug("engine: instrument hold released")
		}
		r.state.Hold = HoldState{}
		return false
	}

	if r.state.Hold.Spent {
		return false
	}
	if !r.state.Hold.Active {
		r.state.Hold = HoldState{Active: true, Since: now}
		r.logger.Debug("engine: instrument hold started")
		return false
	}
	if now.Sub(r.state.Hold.Since) < r.threshold {
		return false
	}

	r.state.Hold = HoldState{Spent: true}
	if len(r.instruments) == 0 {
		return false
	}
	r.state.Instrument = (r.state.Instrument + 1) % len(r.instruments)
	inst := r.instruments[r.state.Instrument]
	if err := r.port.SelectInstrument(inst.Program); err != nil {
		r.logger.Error("engine: instrument change failed", "instrument", inst.Name, "err", err)
	}
	r.logger.Info("engine: instrument changed", "instrument", inst.Name, "program", inst.Program)
	return true
}

// Progress returns how far the current hold is toward the threshold, in
// [0,1]. It is 0 while no hold is active.
func (r *Recognizer) Progress(now time.Time) float64 {
	if !r.state.Hold.Active || r.threshold <= 0 {
		return 0
	}
	p := float64(now.Sub(r.state.Hold.Since)) / float64(r.threshold)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Current returns the selected instrument
func (r *Recognizer) Current() output.Instrument {
	if len(r.instruments) == 0 {
		return output.Instrument{}
	}
	return r.instruments[r.state.Instrument%len(r.instruments)]
}

// bothOpen reports exactly two hands with every finger up. Handedness is not
// checked; trackers often label both hands the same.
func bothOpen(snap hands.Snapshot) bool {
	if len(snap.Hands) != chords.NumHands {
		return false
	}
	for _, h := range snap.Hands {
		if !h.AllUp() {
			return false
		}
	}
	return true
}

package engine

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/hands"
)

const (
	// SustainPrefix marks a chord label that is still shown after its frame
	SustainPrefix = "(Sustaining) "
	// HoldHint is shown while the instrument gesture is timing
	HoldHint = "Hold to Switch Instrument..."
)

// View is the display state derived after each frame
type View struct {
	SessionID       string            `json:"session_id"`
	Frame           uint64            `json:"frame"`
	Hands           []hands.HandState `json:"hands"`
	Chord           string            `json:"chord"`
	Label           string            `json:"label"`
	Triggered       bool              `json:"triggered"`
	Sustaining      bool              `json:"sustaining"`
	Instrument      string            `json:"instrument"`
	InstrumentIndex int               `json:"instrument_index"`
	Hint            string            `json:"hint,omitempty"`
	Holding         bool              `json:"holding"`
	HoldProgress    float64           `json:"hold_progress"`
	PendingReleases int               `json:"pending_releases"`
	Fingers         FingerStates      `json:"fingers"`
	At              time.Time         `json:"at"`
}

// Up reports the stored finger state for key
func (v View) Up(key chords.Key) bool {
	return v.Fingers.Up(key)
}

// Display receives a View after every frame. Show runs on the session loop
// and must not block.
type Display interface {
	Show(View)
}

// DisplayFunc adapts a function to Display
type DisplayFunc func(View)

// Show calls f(v)
func (f DisplayFunc) Show(v View) { f(v) }

// chordText is the label on the frame a chord fired, the sustaining variant
// while a label is still set, and empty otherwise
func chordText(label string, triggered bool) string {
	switch {
	case label == "":
		return ""
	case triggered:
		return label
	default:
		return SustainPrefix + label
	}
}

// LogDisplay logs triggered chords and instrument or hint changes
type LogDisplay struct {
	logger *log.Logger

	mu         sync.Mutex
	instrument string
	hint       string
}

// NewLogDisplay returns a display writing to logger
func NewLogDisplay(logger *log.Logger) *LogDisplay {
	if logger == nil {
		logger = log.Default()
	}
	return &LogDisplay{logger: logger}
}

// Show implements Display
func (d *LogDisplay) Show(v View) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v.Triggered {
		d.logger.Info("chord", "text", v.Chord)
	}
	if v.Instrument != d.instrument {
		d.logger.Info("instrument", "name", v.Instrument)
	}
	if v.Hint != d.hint && v.Hint != "" {
		d.logger.Info(v.Hint)
	}
	d.instrument, d.hint = v.Instrument, v.Hint
}

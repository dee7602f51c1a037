// Package hands defines the hand-tracking collaborator contract: per-frame
// snapshots of which fingers are up, and the sources that produce them.
package hands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/james-see/handchords/pkg/chords"
)

var (
	// ErrNoFrame reports a frame that did not arrive. It is never fatal; the
	// caller retries on the next iteration.
	ErrNoFrame = errors.New("no frame available")
	// ErrClosed is returned by Next once a source has been closed.
	ErrClosed = errors.New("hand source closed")
)

// MaxFrameLine bounds one JSON-lines frame read by Script and Stream
const MaxFrameLine = 1 << 20

// HandState is one detected hand and its finger-up vector, indexed by
// chords.Finger
type HandState struct {
	Hand    chords.Hand
	Fingers [chords.NumFingers]bool
}

// AllUp reports whether every finger of the hand is raised
func (h HandState) AllUp() bool {
	for _, up := range h.Fingers {
		if !up {
			return false
		}
	}
	return true
}

// Up reports whether finger f is raised
func (h HandState) Up(f chords.Finger) bool {
	return f >= 0 && int(f) < chords.NumFingers && h.Fingers[f]
}

// Snapshot is everything the tracker saw in one frame
type Snapshot struct {
	Hands []HandState
}

// Source yields one snapshot per frame. Next blocks until a frame is
// available or ctx is done. Errors wrapping ErrNoFrame are soft; io.EOF and
// ErrClosed end the session.
type Source interface {
	Next(ctx context.Context) (Snapshot, error)
}

// handJSON is the wire form of a HandState:
//
//	{"hand":"left","fingers":[1,1,0,0,0]}
type handJSON struct {
	Hand    string `json:"hand"`
	Fingers []int  `json:"fingers"`
}

// MarshalJSON encodes the hand with a 0/1 finger vector
func (h HandState) MarshalJSON() ([]byte, error) {
	v := handJSON{Hand: h.Hand.String(), Fingers: make([]int, chords.NumFingers)}
	for i, up := range h.Fingers {
		if up {
			v.Fingers[i] = 1
		}
	}
	return json.Marshal(v)
}

// UnmarshalJSON decodes {"hand":..., "fingers":[...]} with exactly five
// 0/1 values
func (h *HandState) UnmarshalJSON(data []byte) error {
	var v handJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	hand, ok := chords.ParseHand(v.Hand)
	if !ok {
		return fmt.Errorf("unknown hand %q", v.Hand)
	}
	if len(v.Fingers) != chords.NumFingers {
		return fmt.Errorf("hand %s: got %d fingers, want %d", v.Hand, len(v.Fingers), chords.NumFingers)
	}
	var out HandState
	out.Hand = hand
	for i, f := range v.Fingers {
		switch f {
		case 0:
		case 1:
			out.Fingers[i] = true
		default:
			return fmt.Errorf("hand %s: finger %d value %d is not 0 or 1", v.Hand, i, f)
		}
	}
	*h = out
	return nil
}

// Frame is the line format shared by scripted and serial sources. Hold, when
// set, repeats the frame for that long.
type Frame struct {
	Hands []HandState `json:"hands"`
	Hold  Duration    `json:"hold,omitempty"`
}

// Snapshot returns the frame's hands as a Snapshot
func (f Frame) Snapshot() Snapshot {
	return Snapshot{Hands: f.Hands}
}

// ParseFrame decodes one JSON line
func ParseFrame(line []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	if len(f.Hands) > chords.NumHands {
		return Frame{}, fmt.Errorf("%w: %d hands in one frame", ErrNoFrame, len(f.Hands))
	}
	return f, nil
}

// Duration is a time.Duration that reads and writes "250ms" style strings
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

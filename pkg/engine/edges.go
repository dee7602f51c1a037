package engine

import (
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/hands"
)

// EdgeKind is the direction of a finger transition
type EdgeKind int

const (
	Rising  EdgeKind = iota // finger went up
	Falling                 // finger went down
)

func (k EdgeKind) String() string {
	if k == Rising {
		return "rising"
	}
	return "falling"
}

// Edge is a finger transition between consecutive frames
type Edge struct {
	Key  chords.Key
	Kind EdgeKind
}

// EdgeDetector compares each frame's finger vector with the stored state.
// Only fingers with a chord produce edges; every finger's state is stored.
type EdgeDetector struct {
	table *chords.Table
	state *State
}

// NewEdgeDetector returns a detector reading and writing state.Fingers
func NewEdgeDetector(table *chords.Table, state *State) *EdgeDetector {
	return &EdgeDetector{table: table, state: state}
}

// Observe samples one visible hand
func (d *EdgeDetector) Observe(h hands.HandState) []Edge {
	if h.Hand < 0 || int(h.Hand) >= chords.NumHands {
		return nil
	}
	var edges []Edge
	for _, f := range chords.Fingers {
		key := chords.Key{Hand: h.Hand, Finger: f}
		prev := d.state.Fingers[h.Hand][f]
		now := h.Fingers[f]
		d.state.Fingers[h.Hand][f] = now

		if prev == now || !d.table.Has(key) {
			continue
		}
		kind := Falling
		if now {
			kind = Rising
		}
		edges = append(edges, Edge{Key: key, Kind: kind})
	}
	return edges
}

// ReleaseAll handles a frame with no visible hands: every raised finger is
// forced down and mapped ones get a synthetic falling edge
func (d *EdgeDetector) ReleaseAll() []Edge {
	var edges []Edge
	for _, h := range chords.Hands {
		for _, f := range chords.Fingers {
			if !d.state.Fingers[h][f] {
				continue
			}
			d.state.Fingers[h][f] = false
			key := chords.Key{Hand: h, Finger: f}
			if d.table.Has(key) {
				edges = append(edges, Edge{Key: key, Kind: Falling})
			}
		}
	}
	return edges
}

package engine

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/output"
)

// DefaultSustain is how long a chord keeps sounding after its finger drops
const DefaultSustain = 200 * time.Millisecond

// DefaultVelocity is used for note-on and note-off
const DefaultVelocity uint8 = 127

// release is a pending note-off burst for one finger. mu makes fire and
// cancel mutually exclusive, so a cancelled release never sends and a
// release already sending finishes before the cancelling note-on.
type release struct {
	key   chords.Key
	chord chords.Chord
	timer *time.Timer

	mu   sync.Mutex
	done bool
}

// Scheduler plays chords on rising edges and schedules their release on
// falling edges. Handle must only be called from the session loop; releases
// fire on their own goroutines and touch nothing but the port.
type Scheduler struct {
	table    *chords.Table
	port     output.Port
	state    *State
	sustain  time.Duration
	velocity uint8
	logger   *log.Logger

	pending map[chords.Key]*release
}

// NewScheduler returns a scheduler writing state.Label
func NewScheduler(table *chords.Table, port output.Port, state *State, sustain time.Duration, velocity uint8, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		table:    table,
		port:     port,
		state:    state,
		sustain:  sustain,
		velocity: velocity,
		logger:   logger,
		pending:  make(map[chords.Key]*release),
	}
}

// Handle processes one edge and reports whether it triggered a chord
func (s *Scheduler) Handle(e Edge) bool {
	switch e.Kind {
	case Rising:
		return s.rise(e.Key)
	case Falling:
		s.fall(e.Key)
	}
	return false
}

func (s *Scheduler) rise(key chords.Key) bool {
	chord, ok := s.table.Lookup(key)
	if !ok {
		return false
	}

	// A release still pending for this finger would silence the chord we
	// are about to play.
	if r, ok := s.pending[key]; ok {
		delete(s.pending, key)
		if r.cancel() {
			s.logger.Debug("engine: pending release cancelled", "key", key)
		}
	}

	s.logger.Debug("engine: chord on", "key", key, "chord", chord.Name, "notes", chord.Notes)
	s.send(key, chord, s.port.NoteOn)
	s.state.Label = s.table.Label(key)
	return true
}

func (s *Scheduler) fall(key chords.Key) {
	chord, ok := s.table.Lookup(key)
	if !ok {
		return
	}
	if old, ok := s.pending[key]; ok {
		old.cancel()
	}

	r := &release{key: key, chord: chord}
	s.pending[key] = r
	r.timer = time.AfterFunc(s.sustain, func() { s.fire(r) })
	s.logger.Debug("engine: release scheduled", "key", key, "chord", chord.Name, "in", s.sustain)
}

// fire sends the note-off burst unless the release was cancelled
func (s *Scheduler) fire(r *release) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	s.logger.Debug("engine: chord off", "key", r.key, "chord", r.chord.Name)
	s.send(r.key, r.chord, s.port.NoteOff)
}

// cancel stops the release and reports whether it had not fired yet
func (r *release) cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	if r.done {
		return false
	}
	r.done = true
	return true
}

func (r *release) fired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// send emits fn for each note in chord order. Out-of-range notes and port
// errors are logged and skipped; the rest of the chord still goes out.
func (s *Scheduler) send(key chords.Key, chord chords.Chord, fn func(note, velocity uint8) error) {
	for _, n := range chord.Notes {
		if !n.Valid() {
			s.logger.Warn("engine: note outside MIDI range, skipping", "key", key, "chord", chord.Name, "note", int(n))
			continue
		}
		if err := fn(uint8(n), s.velocity); err != nil {
			s.logger.Error("engine: send failed", "key", key, "note", n.Name(), "err", err)
		}
	}
}

// Pending returns the number of releases that have not fired yet
func (s *Scheduler) Pending() int {
	n := 0
	for key, r := range s.pending {
		if r.fired() {
			delete(s.pending, key)
			continue
		}
		n++
	}
	return n
}

// Flush fires every outstanding release now. The session calls it on
// shutdown so no note is left hanging when the port closes.
func (s *Scheduler) Flush() {
	for key, r := range s.pending {
		delete(s.pending, key)
		if r.timer != nil {
			r.timer.Stop()
		}
		s.fire(r)
	}
}

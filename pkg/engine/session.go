package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/hands"
	"github.com/james-see/handchords/pkg/output"
)

// ErrNoInstruments is returned when a session is configured with an empty
// instrument list
var ErrNoInstruments = errors.New("no instruments configured")

// Session runs the per-frame loop: gesture recognition, edge detection and
// chord scheduling, then display derivation. Step, Start and Close must be
// called from one goroutine; Run does that for you.
type Session struct {
	id          string
	table       *chords.Table
	port        output.Port
	instruments []output.Instrument
	sustain     time.Duration
	threshold   time.Duration
	velocity    uint8
	now         func() time.Time
	logger      *log.Logger
	displays    []Display

	state    State
	edges    *EdgeDetector
	sched    *Scheduler
	recog    *Recognizer
	frame    uint64
	started  bool
	source   io.Closer
	closeErr error
	once     sync.Once
}

// Option configures a Session
type Option func(*Session)

// WithSustain sets how long chords ring after their finger drops
func WithSustain(d time.Duration) Option {
	return func(s *Session) { s.sustain = d }
}

// WithHoldThreshold sets how long both open hands must be held to switch
// instrument
func WithHoldThreshold(d time.Duration) Option {
	return func(s *Session) { s.threshold = d }
}

// WithInstruments sets the instrument cycle
func WithInstruments(list []output.Instrument) Option {
	return func(s *Session) { s.instruments = append([]output.Instrument(nil), list...) }
}

// WithVelocity sets the note velocity
func WithVelocity(v uint8) Option {
	return func(s *Session) { s.velocity = v }
}

// WithClock replaces time.Now for gesture timing
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the session logger
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithDisplay adds displays that receive a View after each frame
func WithDisplay(d ...Display) Option {
	return func(s *Session) { s.displays = append(s.displays, d...) }
}

// WithID overrides the generated session id
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// NewSession validates its collaborators and wires the detector, scheduler
// and recognizer to one shared State
func NewSession(table *chords.Table, port output.Port, opts ...Option) (*Session, error) {
	if table == nil || table.Len() == 0 {
		return nil, chords.ErrEmptyTable
	}
	if port == nil {
		return nil, output.ErrNoDevice
	}

	s := &Session{
		table:       table,
		port:        port,
		instruments: output.DefaultInstruments,
		sustain:     DefaultSustain,
		threshold:   DefaultHoldThreshold,
		velocity:    DefaultVelocity,
		now:         time.Now,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.instruments) == 0 {
		return nil, ErrNoInstruments
	}
	if s.sustain < 0 {
		return nil, fmt.Errorf("sustain must not be negative, got %s", s.sustain)
	}
	if s.velocity > output.MaxData {
		return nil, fmt.Errorf("velocity %d out of range 0-%d", s.velocity, output.MaxData)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.logger = s.logger.With("session", s.id[:min(8, len(s.id))])

	s.edges = NewEdgeDetector(table, &s.state)
	s.sched = NewScheduler(table, port, &s.state, s.sustain, s.velocity, s.logger)
	s.recog = NewRecognizer(&s.state, port, s.instruments, s.threshold, s.logger)
	return s, nil
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// Table returns the chord table
func (s *Session) Table() *chords.Table { return s.table }

// Instruments returns the instrument cycle
func (s *Session) Instruments() []output.Instrument {
	return append([]output.Instrument(nil), s.instruments...)
}

// State returns a copy of the session state
func (s *Session) State() State { return s.state }

// Start selects the initial instrument. It is a no-op after the first call.
func (s *Session) Start() error {
	if s.started {
		return nil
	}
	s.started = true
	inst := s.recog.Current()
	if err := s.port.SelectInstrument(inst.Program); err != nil {
		return fmt.Errorf("select instrument %s: %w", inst.Name, err)
	}
	s.logger.Info("session started", "instrument", inst.Name, "chords", s.table.Len())
	return nil
}

// Step processes one snapshot and returns the derived View
func (s *Session) Step(snap hands.Snapshot) View {
	now := s.now()
	s.frame++

	s.recog.Observe(snap, now)

	triggered := false
	if len(snap.Hands) == 0 {
		for _, e := range s.edges.ReleaseAll() {
			s.sched.Handle(e)
		}
		s.state.Label = ""
	} else {
		for _, h := range snap.Hands {
			if s.stepHand(h) {
				triggered = true
			}
		}
	}

	v := s.view(snap, triggered, now)
	for _, d := range s.displays {
		d.Show(v)
	}
	return v
}

// stepHand runs edge detection and scheduling for one hand. A panic is
// logged and contained so the other hand and later frames still run.
func (s *Session) stepHand(h hands.HandState) (triggered bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("hand processing failed", "hand", h.Hand, "panic", r)
		}
	}()
	for _, e := range s.edges.Observe(h) {
		if s.sched.Handle(e) {
			triggered = true
		}
	}
	return triggered
}

func (s *Session) view(snap hands.Snapshot, triggered bool, now time.Time) View {
	inst := s.recog.Current()
	v := View{
		SessionID:       s.id,
		Frame:           s.frame,
		Hands:           append([]hands.HandState(nil), snap.Hands...),
		Chord:           chordText(s.state.Label, triggered),
		Label:           s.state.Label,
		Triggered:       triggered,
		Sustaining:      s.state.Label != "" && !triggered,
		Instrument:      inst.Name,
		InstrumentIndex: s.state.Instrument,
		Holding:         s.state.Hold.Active,
		HoldProgress:    s.recog.Progress(now),
		PendingReleases: s.sched.Pending(),
		Fingers:         s.state.Fingers,
		At:              now,
	}
	if v.Holding {
		v.Hint = HoldHint
	}
	return v
}

// Run starts the session and steps it with frames from src until ctx is
// done or the source ends. Frames failing with hands.ErrNoFrame are skipped;
// any other source error ends the run and is returned. The session is closed
// on return whatever the cause; src is closed with it when it implements
// io.Closer.
func (s *Session) Run(ctx context.Context, src hands.Source) (err error) {
	if c, ok := src.(io.Closer); ok {
		s.source = c
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := s.Start(); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			s.logger.Info("session stopping", "frames", s.frame)
			return nil
		}
		snap, err := src.Next(ctx)
		switch {
		case err == nil:
			s.Step(snap)
		case errors.Is(err, io.EOF), errors.Is(err, hands.ErrClosed):
			s.logger.Info("hand source finished", "frames", s.frame)
			return nil
		case ctx.Err() != nil:
			s.logger.Info("session stopping", "frames", s.frame)
			return nil
		case errors.Is(err, hands.ErrNoFrame):
			s.logger.Debug("frame skipped", "err", err)
		default:
			s.logger.Error("hand source failed", "frames", s.frame, "err", err)
			return fmt.Errorf("hand source: %w", err)
		}
	}
}

// Close fires outstanding releases and closes the source and port. Only the
// first call does anything.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.sched.Flush()
		var errs []error
		if s.source != nil {
			if err := s.source.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close hand source: %w", err))
			}
		}
		if err := s.port.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output: %w", err))
		}
		s.closeErr = errors.Join(errs...)
		s.logger.Info("session closed")
	})
	return s.closeErr
}

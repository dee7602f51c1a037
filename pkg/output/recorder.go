package output

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	recordTicksPerQuarter = 960
	recordTempo           = 120.0
)

type recorded struct {
	at  time.Duration
	msg midi.Message
}

// Recorder forwards every command to another port and keeps a timestamped
// copy. On Close it writes the copy to a Standard MIDI File.
type Recorder struct {
	next    Port
	path    string
	channel uint8
	now     func() time.Time
	logger  *log.Logger

	mu     sync.Mutex
	start  time.Time
	events []recorded
	closed bool
}

// NewRecorder wraps next. now may be nil to use the wall clock.
func NewRecorder(next Port, path string, channel uint8, now func() time.Time, logger *log.Logger) *Recorder {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{
		next:    next,
		path:    path,
		channel: channel & 0x0F,
		now:     now,
		logger:  logger,
		start:   now(),
	}
}

func (r *Recorder) record(msg midi.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.events = append(r.events, recorded{at: r.now().Sub(r.start), msg: msg})
}

// SelectInstrument implements Port
func (r *Recorder) SelectInstrument(program uint8) error {
	if err := r.next.SelectInstrument(program); err != nil {
		return err
	}
	r.record(midi.ProgramChange(r.channel, program))
	return nil
}

// NoteOn implements Port
func (r *Recorder) NoteOn(note, velocity uint8) error {
	if err := r.next.NoteOn(note, velocity); err != nil {
		return err
	}
	r.record(midi.NoteOn(r.channel, note, velocity))
	return nil
}

// NoteOff implements Port
func (r *Recorder) NoteOff(note, velocity uint8) error {
	if err := r.next.NoteOff(note, velocity); err != nil {
		return err
	}
	r.record(midi.NoteOffVelocity(r.channel, note, velocity))
	return nil
}

// Close closes the wrapped port and writes the recording
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	events := r.events
	r.mu.Unlock()

	err := r.next.Close()
	if werr := r.write(events); werr != nil {
		err = errors.Join(err, werr)
	}
	return err
}

func (r *Recorder) write(events []recorded) error {
	s := smf.New()
	ticks := smf.MetricTicks(recordTicksPerQuarter)
	s.TimeFormat = ticks

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName("handchords"))
	track.Add(0, smf.MetaTempo(recordTempo))

	sort.SliceStable(events, func(i, j int) bool { return events[i].at < events[j].at })

	var last uint32
	for _, ev := range events {
		abs := ticks.Ticks(recordTempo, ev.at)
		if abs < last {
			abs = last
		}
		track.Add(abs-last, ev.msg)
		last = abs
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}

	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	if _, err := s.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write MIDI: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close recording: %w", err)
	}
	r.logger.Info("output: recording written", "path", r.path, "events", len(events))
	return nil
}

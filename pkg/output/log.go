package output

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/chords"
)

// Log is a dry-run port: it validates and logs every command instead of
// sending it anywhere
type Log struct {
	logger *log.Logger

	mu     sync.Mutex
	closed bool
}

// NewLog returns a dry-run port writing to logger
func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// SelectInstrument implements Port
func (l *Log) SelectInstrument(program uint8) error {
	if l.isClosed() {
		return ErrClosed
	}
	if err := checkData("program", program); err != nil {
		return err
	}
	l.logger.Info("output: program change", "program", program)
	return nil
}

// NoteOn implements Port
func (l *Log) NoteOn(note, velocity uint8) error {
	if l.isClosed() {
		return ErrClosed
	}
	if err := checkData("note", note); err != nil {
		return err
	}
	l.logger.Info("output: note on", "note", chords.Note(note).Name(), "key", note, "velocity", velocity)
	return nil
}

// NoteOff implements Port
func (l *Log) NoteOff(note, velocity uint8) error {
	if l.isClosed() {
		return ErrClosed
	}
	if err := checkData("note", note); err != nil {
		return err
	}
	l.logger.Info("output: note off", "note", chords.Note(note).Name(), "key", note, "velocity", velocity)
	return nil
}

// Close implements Port
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		l.logger.Info("output: dry-run port closed")
	}
	return nil
}

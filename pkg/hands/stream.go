package hands

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"go.bug.st/serial"
)

// Stream reads JSON-lines frames pushed by an external tracker (for example a
// microcontroller glove or a landmark detector on another machine) over any
// byte stream. Frames arrive at the tracker's own rate; Next returns them in
// order and blocks when none is pending.
type Stream struct {
	rc     io.ReadCloser
	frames chan Snapshot
	done   chan struct{}
	logger *log.Logger

	mu     sync.Mutex
	err    error
	closed bool
	once   sync.Once
}

// NewStream starts reading frames from rc in the background
func NewStream(rc io.ReadCloser, logger *log.Logger) *Stream {
	if logger == nil {
		logger = log.Default()
	}
	s := &Stream{
		rc:     rc,
		frames: make(chan Snapshot, 8),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.read()
	return s
}

// OpenSerial opens a serial tracker at the given baud rate
func OpenSerial(device string, baud int, logger *log.Logger) (*Stream, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	if logger == nil {
		logger = log.Default()
	}
	logger.Info("hands: serial tracker opened", "device", device, "baud", baud)
	return NewStream(port, logger), nil
}

// SerialPorts lists the serial devices present on this machine
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

func (s *Stream) read() {
	defer close(s.frames)
	sc := bufio.NewScanner(s.rc)
	sc.Buffer(make([]byte, 0, 4096), MaxFrameLine)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 || b[0] == '#' {
			continue
		}
		f, err := ParseFrame(b)
		if err != nil {
			s.logger.Warn("hands: bad frame from tracker", "line", line, "err", err)
			continue
		}
		select {
		case s.frames <- f.Snapshot():
		case <-s.done:
			return
		}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Next implements Source
func (s *Stream) Next(ctx context.Context) (Snapshot, error) {
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case snap, ok := <-s.frames:
		if ok {
			return snap, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrClosed
	}
	if s.err != nil && !errors.Is(s.err, io.EOF) {
		return Snapshot{}, fmt.Errorf("read tracker: %w", s.err)
	}
	return Snapshot{}, io.EOF
}

// Close closes the underlying port; pending frames are discarded
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		err = s.rc.Close()
	})
	return err
}

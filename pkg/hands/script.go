package hands

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// pacer releases one frame per interval, like a camera would. A zero
// interval never waits.
type pacer struct {
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
	once     sync.Once
}

func newPacer(interval time.Duration) *pacer {
	p := &pacer{interval: interval, done: make(chan struct{})}
	if interval > 0 {
		p.ticker = time.NewTicker(interval)
	}
	return p
}

func (p *pacer) wait(ctx context.Context) error {
	if p.ticker == nil {
		select {
		case <-p.done:
			return ErrClosed
		default:
			return ctx.Err()
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrClosed
	case <-p.ticker.C:
		return nil
	}
}

func (p *pacer) stop() {
	p.once.Do(func() {
		close(p.done)
		if p.ticker != nil {
			p.ticker.Stop()
		}
	})
}

// Script replays JSON-lines frames, one line per frame:
//
//	{"hands":[{"hand":"right","fingers":[0,1,0,0,0]}],"hold":"300ms"}
//
// Blank lines and lines starting with '#' are skipped. A frame with a hold
// repeats until the hold has elapsed. Next returns io.EOF after the last line.
type Script struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	closer  io.Closer
	pace    *pacer
	line    int
	current Frame
	repeats int
	closed  bool
}

// NewScript reads frames from r, releasing one every interval
func NewScript(r io.Reader, interval time.Duration) *Script {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxFrameLine)
	s := &Script{
		scanner: sc,
		pace:    newPacer(interval),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenScript opens a script file
func OpenScript(path string, interval time.Duration) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	return NewScript(f, interval), nil
}

// Next implements Source
func (s *Script) Next(ctx context.Context) (Snapshot, error) {
	if err := s.pace.wait(ctx); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrClosed
	}

	if s.repeats > 0 {
		s.repeats--
		return s.current.Snapshot(), nil
	}

	for s.scanner.Scan() {
		s.line++
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		f, err := ParseFrame(line)
		if err != nil {
			return Snapshot{}, fmt.Errorf("script line %d: %w", s.line, err)
		}
		s.current = f
		s.repeats = s.holdFrames(f) - 1
		return f.Snapshot(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("read script: %w", err)
	}
	return Snapshot{}, io.EOF
}

// holdFrames converts a frame's hold into a repeat count of at least one
func (s *Script) holdFrames(f Frame) int {
	hold := time.Duration(f.Hold)
	if hold <= 0 || s.pace.interval <= 0 {
		return 1
	}
	n := int((hold + s.pace.interval - 1) / s.pace.interval)
	if n < 1 {
		n = 1
	}
	return n
}

// Close stops pacing and closes the underlying reader if it is closable
func (s *Script) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pace.stop()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

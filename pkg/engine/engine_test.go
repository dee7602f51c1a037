package engine

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/hands"
	"github.com/stretchr/testify/require"
)

var quiet = log.New(io.Discard)

const testMapping = `hand,finger,chord_name,note1,note2,note3
left,thumb,C Major,c4,e4,g4
right,index,G Major,g4,b4,d5
right,pinky,Edge,g9,b9,c4
`

var (
	leftThumb  = chords.Key{Hand: chords.Left, Finger: chords.Thumb}
	rightIndex = chords.Key{Hand: chords.Right, Finger: chords.Index}
	rightPinky = chords.Key{Hand: chords.Right, Finger: chords.Pinky}
)

func testTable(t *testing.T) *chords.Table {
	t.Helper()
	table, err := chords.Load(strings.NewReader(testMapping), quiet)
	require.NoError(t, err)
	return table
}

type call struct {
	Op    string
	Value uint8
}

// fakePort records every command. failNote makes NoteOn return an error for
// that note; panicNote makes it panic.
type fakePort struct {
	mu        sync.Mutex
	calls     []call
	closes    int
	failNote  int
	panicNote int
}

func newFakePort() *fakePort {
	return &fakePort{failNote: -1, panicNote: -1}
}

func (p *fakePort) add(op string, v uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call{op, v})
}

func (p *fakePort) SelectInstrument(program uint8) error {
	p.add("program", program)
	return nil
}

func (p *fakePort) NoteOn(note, velocity uint8) error {
	if int(note) == p.panicNote {
		panic("driver exploded")
	}
	if int(note) == p.failNote {
		return errors.New("send failed")
	}
	p.add("on", note)
	return nil
}

func (p *fakePort) NoteOff(note, velocity uint8) error {
	p.add("off", note)
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

// ops returns the notes sent for op, in order
func (p *fakePort) ops(op string) []uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []uint8
	for _, c := range p.calls {
		if c.Op == op {
			out = append(out, c.Value)
		}
	}
	return out
}

func (p *fakePort) all() []call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]call(nil), p.calls...)
}

func (p *fakePort) closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// hand builds a HandState from a 0/1 finger string such as "10000"
func hand(h chords.Hand, fingers string) hands.HandState {
	s := hands.HandState{Hand: h}
	for i, c := range fingers {
		s.Fingers[i] = c == '1'
	}
	return s
}

func snapshot(hs ...hands.HandState) hands.Snapshot {
	return hands.Snapshot{Hands: hs}
}

var bothOpenSnap = snapshot(hand(chords.Left, "11111"), hand(chords.Right, "11111"))

// clock is a manually advanced time source
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

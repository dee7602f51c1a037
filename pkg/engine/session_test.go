package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/hands"
	"github.com/james-see/handchords/pkg/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, opts ...Option) (*Session, *fakePort, *clock) {
	t.Helper()
	port := newFakePort()
	clk := newClock()
	opts = append([]Option{
		WithSustain(testSustain),
		WithClock(clk.Now),
		WithLogger(quiet),
		WithID("test-session"),
	}, opts...)
	s, err := NewSession(testTable(t), port, opts...)
	require.NoError(t, err)
	return s, port, clk
}

func TestNewSessionValidation(t *testing.T) {
	table := testTable(t)

	_, err := NewSession(nil, newFakePort())
	assert.ErrorIs(t, err, chords.ErrEmptyTable)

	_, err = NewSession(table, nil)
	assert.ErrorIs(t, err, output.ErrNoDevice)

	_, err = NewSession(table, newFakePort(), WithInstruments(nil))
	assert.ErrorIs(t, err, ErrNoInstruments)

	_, err = NewSession(table, newFakePort(), WithSustain(-time.Second))
	assert.Error(t, err)

	s, err := NewSession(table, newFakePort(), WithLogger(quiet))
	require.NoError(t, err)
	assert.Len(t, s.ID(), 36)
	assert.Len(t, s.Instruments(), 5)
}

func TestSessionStartSelectsFirstInstrument(t *testing.T) {
	s, port, _ := newTestSession(t)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Equal(t, []call{{"program", 0}}, port.all())
}

func TestSessionChordPlayAndRelease(t *testing.T) {
	s, port, _ := newTestSession(t, WithSustain(200*time.Millisecond))

	v := s.Step(snapshot(hand(chords.Left, "10000")))
	assert.Equal(t, []uint8{60, 64, 67}, port.ops("on"))
	assert.Equal(t, "C Major (Left Thumb)", v.Chord)
	assert.True(t, v.Triggered)

	v = s.Step(snapshot(hand(chords.Left, "10000")))
	assert.Equal(t, "(Sustaining) C Major (Left Thumb)", v.Chord)
	assert.True(t, v.Sustaining)

	start := time.Now()
	v = s.Step(snapshot(hand(chords.Left, "00000")))
	assert.Equal(t, 1, v.PendingReleases)
	require.Eventually(t, func() bool { return len(port.ops("off")) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, []uint8{60, 64, 67}, port.ops("off"))
}

func TestSessionLosingHandsReleasesEverything(t *testing.T) {
	s, port, _ := newTestSession(t)

	s.Step(snapshot(hand(chords.Left, "10000"), hand(chords.Right, "01000")))
	v := s.Step(snapshot())

	assert.Equal(t, FingerStates{}, v.Fingers)
	assert.Empty(t, v.Chord)
	assert.Empty(t, v.Label)
	assert.Equal(t, 2, v.PendingReleases)

	require.Eventually(t, func() bool { return len(port.ops("off")) == 6 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []uint8{60, 64, 67, 67, 71, 74}, port.ops("off"))
}

func TestSessionOneHandKeepsOther(t *testing.T) {
	s, port, _ := newTestSession(t)

	s.Step(snapshot(hand(chords.Left, "10000"), hand(chords.Right, "01000")))
	s.Step(snapshot(hand(chords.Left, "10000")))
	time.Sleep(3 * testSustain)
	assert.Empty(t, port.ops("off"))
	assert.True(t, s.State().Fingers.Up(rightIndex))
}

func TestSessionPanicInOneHand(t *testing.T) {
	s, port, _ := newTestSession(t)
	port.panicNote = 60

	v := s.Step(snapshot(hand(chords.Left, "10000"), hand(chords.Right, "01000")))
	assert.Equal(t, []uint8{67, 71, 74}, port.ops("on"))
	assert.Equal(t, "G Major (Right Index)", v.Chord)
}

func TestSessionInstrumentGesture(t *testing.T) {
	s, port, clk := newTestSession(t)

	v := s.Step(bothOpenSnap)
	assert.Equal(t, HoldHint, v.Hint)
	assert.True(t, v.Holding)
	assert.Equal(t, "Acoustic Grand Piano", v.Instrument)

	clk.Advance(DefaultHoldThreshold)
	v = s.Step(bothOpenSnap)
	assert.Empty(t, v.Hint)
	assert.Equal(t, "Acoustic Guitar (nylon)", v.Instrument)
	assert.Equal(t, 1, v.InstrumentIndex)
	assert.Contains(t, port.all(), call{"program", 24})
}

func TestSessionDisplays(t *testing.T) {
	var views []View
	s, _, _ := newTestSession(t, WithDisplay(DisplayFunc(func(v View) { views = append(views, v) })))

	s.Step(snapshot(hand(chords.Left, "10000")))
	s.Step(snapshot())
	require.Len(t, views, 2)
	assert.Equal(t, uint64(1), views[0].Frame)
	assert.Equal(t, "test-session", views[0].SessionID)
	assert.Equal(t, uint64(2), views[1].Frame)
}

func TestSessionRunScript(t *testing.T) {
	script := strings.Join([]string{
		`{"hands":[{"hand":"left","fingers":[1,0,0,0,0]}]}`,
		`{"hands":[{"hand":"left","fingers":[0,0,0,0,0]}]}`,
		`{"hands":[]}`,
	}, "\n")
	src := hands.NewScript(strings.NewReader(script), time.Millisecond)
	s, port, _ := newTestSession(t, WithSustain(time.Hour))

	require.NoError(t, s.Run(context.Background(), src))

	// the pending release is flushed on close
	assert.Equal(t, []call{
		{"program", 0},
		{"on", 60}, {"on", 64}, {"on", 67},
		{"off", 60}, {"off", 64}, {"off", 67},
	}, port.all())
	assert.Equal(t, 1, port.closed())

	require.NoError(t, s.Close())
	assert.Equal(t, 1, port.closed())
}

func TestSessionRunSkipsBadLines(t *testing.T) {
	script := strings.Join([]string{
		`{"hands":[]}`,
		"not json",
		`{"hands":[{"hand":"left","fingers":[` + strings.Repeat("0,", 35000) + `0]}]}`,
		`{"hands":[{"hand":"left","fingers":[1,0,0,0,0]}]}`,
	}, "\n")
	src := hands.NewScript(strings.NewReader(script), time.Millisecond)
	s, port, _ := newTestSession(t, WithSustain(time.Hour))

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), src) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not finish the script")
	}
	assert.Equal(t, []uint8{60, 64, 67}, port.ops("on"))
}

type failingSource struct{ calls int }

func (f *failingSource) Next(context.Context) (hands.Snapshot, error) {
	f.calls++
	return hands.Snapshot{}, errors.New("device unplugged")
}

func TestSessionRunStopsOnSourceError(t *testing.T) {
	src := &failingSource{}
	s, port, _ := newTestSession(t)

	err := s.Run(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device unplugged")
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, port.closed())
}

func TestSessionRunCancel(t *testing.T) {
	q := hands.NewQueue(time.Millisecond)
	require.NoError(t, q.Push(snapshot(hand(chords.Right, "01000"))))
	s, port, _ := newTestSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, q) }()

	require.Eventually(t, func() bool { return len(port.ops("on")) == 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, port.closed())
	assert.ErrorIs(t, q.Push(snapshot()), hands.ErrClosed)
}

func TestLogDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogDisplay(log.New(&buf))

	d.Show(View{Chord: "C Major (Left Thumb)", Triggered: true, Instrument: "Violin"})
	d.Show(View{Chord: "(Sustaining) C Major (Left Thumb)", Instrument: "Violin"})
	d.Show(View{Instrument: "Violin", Hint: HoldHint})

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "C Major"))
	assert.Equal(t, 1, strings.Count(out, "Violin"))
	assert.Contains(t, out, HoldHint)
}

func TestChordText(t *testing.T) {
	tests := []struct {
		label     string
		triggered bool
		want      string
	}{
		{"", false, ""},
		{"", true, ""},
		{"C Major (Left Thumb)", true, "C Major (Left Thumb)"},
		{"C Major (Left Thumb)", false, "(Sustaining) C Major (Left Thumb)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, chordText(tt.label, tt.triggered))
	}
}

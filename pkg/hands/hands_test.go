package hands

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandStateJSON(t *testing.T) {
	var h HandState
	require.NoError(t, json.Unmarshal([]byte(`{"hand":"Right","fingers":[0,1,0,0,1]}`), &h))
	assert.Equal(t, chords.Right, h.Hand)
	assert.True(t, h.Up(chords.Index))
	assert.True(t, h.Up(chords.Pinky))
	assert.False(t, h.Up(chords.Thumb))
	assert.False(t, h.AllUp())

	out, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hand":"right","fingers":[0,1,0,0,1]}`, string(out))
}

func TestHandStateJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown hand", `{"hand":"middle","fingers":[0,0,0,0,0]}`},
		{"short vector", `{"hand":"left","fingers":[1,1]}`},
		{"bad value", `{"hand":"left","fingers":[0,2,0,0,0]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h HandState
			assert.Error(t, json.Unmarshal([]byte(tt.in), &h))
		})
	}
}

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"hands":[{"hand":"left","fingers":[1,1,1,1,1]},{"hand":"right","fingers":[1,1,1,1,1]}],"hold":"600ms"}`))
	require.NoError(t, err)
	require.Len(t, f.Hands, 2)
	assert.True(t, f.Hands[0].AllUp())
	assert.Equal(t, 600*time.Millisecond, time.Duration(f.Hold))

	_, err = ParseFrame([]byte(`{"hands":`))
	assert.ErrorIs(t, err, ErrNoFrame)

	three := `{"hands":[{"hand":"left","fingers":[0,0,0,0,0]},{"hand":"left","fingers":[0,0,0,0,0]},{"hand":"right","fingers":[0,0,0,0,0]}]}`
	_, err = ParseFrame([]byte(three))
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestScriptReplay(t *testing.T) {
	src := strings.Join([]string{
		"# index up then down",
		`{"hands":[{"hand":"right","fingers":[0,1,0,0,0]}]}`,
		"",
		"not json",
		`{"hands":[]}`,
	}, "\n")
	s := NewScript(strings.NewReader(src), 0)
	ctx := context.Background()

	snap, err := s.Next(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Hands, 1)
	assert.True(t, snap.Hands[0].Up(chords.Index))

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, ErrNoFrame)

	snap, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Hands)

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestScriptLongLine(t *testing.T) {
	long := `{"hands":[],"pad":"` + strings.Repeat("x", 70*1024) + `"}`
	s := NewScript(strings.NewReader(long+"\n"+`{"hands":[]}`), 0)
	ctx := context.Background()

	snap, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Hands)

	_, err = s.Next(ctx)
	require.NoError(t, err)
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestScriptHoldRepeats(t *testing.T) {
	src := `{"hands":[{"hand":"left","fingers":[1,0,0,0,0]}],"hold":"25ms"}` + "\n" + `{"hands":[]}`
	s := NewScript(strings.NewReader(src), 10*time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	held := 0
	for {
		snap, err := s.Next(ctx)
		require.NoError(t, err)
		if len(snap.Hands) == 0 {
			break
		}
		held++
	}
	assert.Equal(t, 3, held)
}

func TestScriptClose(t *testing.T) {
	s := NewScript(strings.NewReader(`{"hands":[]}`), 0)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStream(t *testing.T) {
	pr, pw := io.Pipe()
	s := NewStream(pr, log.New(io.Discard))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		_, _ = io.WriteString(pw, "garbage\n")
		_, _ = io.WriteString(pw, `{"hands":[{"hand":"left","fingers":[0,0,1,0,0]}]}`+"\n")
		_ = pw.Close()
	}()

	snap, err := s.Next(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Hands, 1)
	assert.True(t, snap.Hands[0].Up(chords.Middle))

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, s.Close())
}

func TestStreamClosedReportsErrClosed(t *testing.T) {
	pr, _ := io.Pipe()
	s := NewStream(pr, log.New(io.Discard))
	require.NoError(t, s.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue(t *testing.T) {
	q := NewQueue(time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	snap, err := q.Next(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Hands)

	pose := Snapshot{Hands: []HandState{{Hand: chords.Left, Fingers: [5]bool{true}}}}
	require.NoError(t, q.Push(pose))
	for i := 0; i < 3; i++ {
		snap, err = q.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, pose, snap)
	}
	assert.Equal(t, uint64(1), q.Pushes())

	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Push(pose), ErrClosed)
	_, err = q.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueueNextHonoursContext(t *testing.T) {
	q := NewQueue(time.Hour)
	defer q.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Next(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

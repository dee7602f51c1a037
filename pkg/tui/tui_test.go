package tui

import (
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/engine"
	"github.com/james-see/handchords/pkg/hands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *chords.Table {
	t.Helper()
	src := "hand,finger,chord_name,note1,note2,note3\nleft,thumb,C Major,c4,e4,g4\nright,index,G Major,g4,b4,d5\n"
	table, err := chords.Load(strings.NewReader(src), log.New(io.Discard))
	require.NoError(t, err)
	return table
}

func press(m Model, k string) Model {
	var msg tea.KeyMsg
	if k == "ctrl+c" {
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	} else {
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestFingerKeys(t *testing.T) {
	q := hands.NewQueue(0)
	defer q.Close()
	m := New(testTable(t), NewDisplay(), q)

	tests := []struct {
		key    string
		hand   chords.Hand
		finger chords.Finger
	}{
		{"1", chords.Left, chords.Thumb},
		{"5", chords.Left, chords.Pinky},
		{"6", chords.Right, chords.Thumb},
		{"7", chords.Right, chords.Index},
		{"0", chords.Right, chords.Pinky},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			before := q.Pushes()
			m = press(m, tt.key)
			snap := m.Pose()
			require.Len(t, snap.Hands, 2)
			assert.True(t, snap.Hands[tt.hand].Up(tt.finger))
			assert.Equal(t, before+1, q.Pushes())

			m = press(m, tt.key)
			assert.False(t, m.Pose().Hands[tt.hand].Up(tt.finger))
		})
	}
}

func TestHandKeys(t *testing.T) {
	q := hands.NewQueue(0)
	defer q.Close()
	m := New(testTable(t), NewDisplay(), q)

	m = press(m, "l")
	snap := m.Pose()
	require.Len(t, snap.Hands, 1)
	assert.Equal(t, chords.Right, snap.Hands[0].Hand)

	m = press(m, "n")
	assert.Empty(t, m.Pose().Hands)

	m = press(m, "u")
	snap = m.Pose()
	require.Len(t, snap.Hands, 2)
	assert.True(t, snap.Hands[0].AllUp())
	assert.True(t, snap.Hands[1].AllUp())
}

func TestKeysIgnoredWithoutKeyboard(t *testing.T) {
	m := New(testTable(t), NewDisplay(), nil)
	m = press(m, "1")
	assert.False(t, m.Pose().Hands[0].Up(chords.Thumb))
}

func TestQuit(t *testing.T) {
	m := New(testTable(t), NewDisplay(), nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestViewRendersSession(t *testing.T) {
	m := New(testTable(t), NewDisplay(), nil)
	assert.Contains(t, m.View(), "Waiting for frames")

	var fingers engine.FingerStates
	fingers[chords.Left][chords.Thumb] = true
	next, _ := m.Update(viewMsg(engine.View{
		Frame:      3,
		Chord:      "(Sustaining) C Major (Left Thumb)",
		Sustaining: true,
		Instrument: "Violin",
		Hint:       engine.HoldHint,
		Holding:    true,
		Fingers:    fingers,
	}))
	m = next.(Model)

	out := m.View()
	assert.Contains(t, out, "(Sustaining) C Major (Left Thumb)")
	assert.Contains(t, out, "Instrument: Violin")
	assert.Contains(t, out, engine.HoldHint)
	assert.Contains(t, out, "G Major")
	assert.Contains(t, out, "frame 3")

	next, _ = m.Update(sessionDoneMsg{})
	assert.Contains(t, next.(Model).View(), "Hand source finished")
}

func TestDisplayKeepsLatest(t *testing.T) {
	d := NewDisplay()
	d.Show(engine.View{Frame: 1})
	d.Show(engine.View{Frame: 2})

	msg := d.wait()()
	assert.Equal(t, uint64(2), engine.View(msg.(viewMsg)).Frame)
}

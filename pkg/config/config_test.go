package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/james-see/handchords/pkg/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 200*time.Millisecond, cfg.Sustain)
	assert.Equal(t, 500*time.Millisecond, cfg.Hold)
	assert.Equal(t, uint8(127), cfg.Velocity)
	assert.Equal(t, output.DefaultInstruments, cfg.Instruments)
	assert.Len(t, cfg.SessionOptions(), 4)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handchords.yaml")
	data := `chords: my-chords.txt
sustain: 350ms
hold: 1s
velocity: 100
channel: 2
instruments:
  - {program: 40, name: Violin}
  - {program: 81, name: Lead Square Wave (Synth)}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-chords.txt", cfg.Chords)
	assert.Equal(t, 350*time.Millisecond, cfg.Sustain)
	assert.Equal(t, time.Second, cfg.Hold)
	assert.Equal(t, uint8(100), cfg.Velocity)
	assert.Equal(t, uint8(2), cfg.Channel)
	assert.Equal(t, []output.Instrument{{Program: 40, Name: "Violin"}, {Program: 81, Name: "Lead Square Wave (Synth)"}}, cfg.Instruments)
	// untouched keys keep defaults
	assert.Equal(t, 33*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, ":8080", cfg.Listen)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "tempo: 120\n"},
		{"negative sustain", "sustain: -1s\n"},
		{"zero hold", "hold: 0s\n"},
		{"velocity", "velocity: 200\n"},
		{"channel", "channel: 16\n"},
		{"empty instruments", "instruments: []\n"},
		{"program range", "instruments: [{program: 128, name: Nope}]\n"},
		{"unnamed instrument", "instruments: [{program: 1}]\n"},
		{"not yaml", "sustain: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := Parse([]byte(tt.yaml), &cfg)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Port = "FluidSynth"
	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "sustain: 200ms")

	got := Default()
	require.NoError(t, Parse(data, &got))
	assert.Equal(t, cfg, got)
}

func TestLoadSampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "testdata", "handchords.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "testdata/chords.txt", cfg.Chords)
	assert.Equal(t, output.DefaultInstruments, cfg.Instruments)
}

// Package config loads session settings from a YAML file
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/james-see/handchords/pkg/engine"
	"github.com/james-see/handchords/pkg/hands"
	"github.com/james-see/handchords/pkg/output"
	"gopkg.in/yaml.v2"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid config")

// Config is everything a session needs that is not a collaborator
type Config struct {
	Chords        string              `yaml:"chords"`
	Sustain       time.Duration       `yaml:"sustain"`
	Hold          time.Duration       `yaml:"hold"`
	Velocity      uint8               `yaml:"velocity"`
	Channel       uint8               `yaml:"channel"`
	Port          string              `yaml:"port"`
	FrameInterval time.Duration       `yaml:"frame_interval"`
	Instruments   []output.Instrument `yaml:"instruments"`
	Serial        string              `yaml:"serial"`
	Baud          int                 `yaml:"baud"`
	Listen        string              `yaml:"listen"`
	LogLevel      string              `yaml:"log_level"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Chords:        "chords.txt",
		Sustain:       engine.DefaultSustain,
		Hold:          engine.DefaultHoldThreshold,
		Velocity:      engine.DefaultVelocity,
		Channel:       0,
		FrameInterval: hands.DefaultFrameInterval,
		Instruments:   append([]output.Instrument(nil), output.DefaultInstruments...),
		Baud:          115200,
		Listen:        ":8080",
		LogLevel:      "info",
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg and validates the result
func Parse(data []byte, cfg *Config) error {
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg.Validate()
}

// Validate checks ranges
func (c Config) Validate() error {
	var errs []error
	if c.Chords == "" {
		errs = append(errs, errors.New("chords path is empty"))
	}
	if c.Sustain < 0 {
		errs = append(errs, fmt.Errorf("sustain %s is negative", c.Sustain))
	}
	if c.Hold <= 0 {
		errs = append(errs, fmt.Errorf("hold %s must be positive", c.Hold))
	}
	if c.FrameInterval <= 0 {
		errs = append(errs, fmt.Errorf("frame_interval %s must be positive", c.FrameInterval))
	}
	if c.Velocity > output.MaxData {
		errs = append(errs, fmt.Errorf("velocity %d out of range 0-%d", c.Velocity, output.MaxData))
	}
	if c.Channel > 15 {
		errs = append(errs, fmt.Errorf("channel %d out of range 0-15", c.Channel))
	}
	if c.Baud <= 0 {
		errs = append(errs, fmt.Errorf("baud %d must be positive", c.Baud))
	}
	if len(c.Instruments) == 0 {
		errs = append(errs, errors.New("instrument list is empty"))
	}
	for i, inst := range c.Instruments {
		if inst.Program > output.MaxData {
			errs = append(errs, fmt.Errorf("instrument %d (%s): program %d out of range 0-%d", i, inst.Name, inst.Program, output.MaxData))
		}
		if inst.Name == "" {
			errs = append(errs, fmt.Errorf("instrument %d has no name", i))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// SessionOptions converts the engine settings to session options
func (c Config) SessionOptions() []engine.Option {
	return []engine.Option{
		engine.WithSustain(c.Sustain),
		engine.WithHoldThreshold(c.Hold),
		engine.WithVelocity(c.Velocity),
		engine.WithInstruments(c.Instruments),
	}
}

// Marshal renders cfg as YAML
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/config"
	"github.com/james-see/handchords/pkg/engine"
	"github.com/james-see/handchords/pkg/hands"
	"github.com/james-see/handchords/pkg/output"
	"github.com/spf13/cobra"
)

// logOutput is closed by main once the command returns
var logOutput io.Closer

func addSessionFlags(cmd *cobra.Command) {
	def := config.Default()
	f := cmd.Flags()
	f.StringVarP(&midiPort, "port", "p", "", "MIDI output: index or name substring (default first port)")
	f.Uint8Var(&channel, "channel", def.Channel, "MIDI channel (0-15)")
	f.DurationVar(&sustain, "sustain", def.Sustain, "How long chords ring after a finger drops")
	f.DurationVar(&hold, "hold", def.Hold, "How long to hold both hands open to switch instrument")
	f.Uint8Var(&velocity, "velocity", def.Velocity, "Note velocity (0-127)")
	f.DurationVar(&frameInterval, "frame-interval", def.FrameInterval, "Frame interval for scripted and pushed frames")
	f.BoolVar(&dryRun, "dry-run", false, "Log MIDI instead of opening a device")
	f.StringVar(&recordPath, "record", "", "Also write the performance to this MIDI file")
	f.StringVar(&scriptPath, "script", "", "Replay frames from a JSON-lines file")
	f.StringVar(&serialDevice, "serial", "", "Read frames from a serial tracker")
	f.IntVar(&baud, "baud", def.Baud, "Serial baud rate")
}

// setupLogging builds the logger and stores it in the command context. While
// the terminal UI owns the screen, logs go to --log-file.
func setupLogging(cmd *cobra.Command, args []string) error {
	var w io.Writer = os.Stderr
	if cmd == playCmd && !noTUI {
		if logFile == "" {
			w = io.Discard
		} else {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			w = f
			logOutput = f
		}
	}

	logger, err := newLogger(w, logFormat, debug)
	if err != nil {
		return err
	}
	log.SetDefault(logger)
	cmd.SetContext(log.WithContext(cmd.Context(), logger))
	return nil
}

func newLogger(w io.Writer, format string, debug bool) (*log.Logger, error) {
	opts := log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "handchords",
		Level:           log.InfoLevel,
	}
	if debug {
		opts.Level = log.DebugLevel
	}
	switch strings.ToLower(format) {
	case "", "text":
		opts.Formatter = log.TextFormatter
	case "json":
		opts.Formatter = log.JSONFormatter
	case "logfmt":
		opts.Formatter = log.LogfmtFormatter
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log.NewWithOptions(w, opts), nil
}

// loadConfig reads --config if given and applies any flags the user set
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}

	f := cmd.Flags()
	if f.Changed("chords") || configPath == "" {
		cfg.Chords = chordsPath
	}
	if f.Changed("port") {
		cfg.Port = midiPort
	}
	if f.Changed("channel") {
		cfg.Channel = channel
	}
	if f.Changed("sustain") {
		cfg.Sustain = sustain
	}
	if f.Changed("hold") {
		cfg.Hold = hold
	}
	if f.Changed("velocity") {
		cfg.Velocity = velocity
	}
	if f.Changed("frame-interval") {
		cfg.FrameInterval = frameInterval
	}
	if f.Changed("serial") {
		cfg.Serial = serialDevice
	}
	if f.Changed("baud") {
		cfg.Baud = baud
	}
	if f.Changed("listen") {
		cfg.Listen = listenAddr
	}
	if !debug && cfg.LogLevel != "" {
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return cfg, fmt.Errorf("%w: log_level: %v", config.ErrInvalid, err)
		}
		log.FromContext(cmd.Context()).SetLevel(level)
	}
	return cfg, cfg.Validate()
}

// openPort opens the configured output, wrapped in a recorder when --record
// is set
func openPort(cfg config.Config, logger *log.Logger) (output.Port, error) {
	var port output.Port
	if dryRun {
		port = output.NewLog(logger)
	} else {
		m, err := output.OpenMIDI(cfg.Port, cfg.Channel, logger)
		if err != nil {
			return nil, err
		}
		port = m
	}
	if recordPath != "" {
		port = output.NewRecorder(port, recordPath, cfg.Channel, nil, logger)
	}
	return port, nil
}

// openSource picks the hand source: a script, a serial tracker, or a queue
// that the caller feeds. The queue is nil for the first two.
func openSource(cfg config.Config, logger *log.Logger) (hands.Source, *hands.Queue, error) {
	switch {
	case scriptPath != "" && cfg.Serial != "":
		return nil, nil, errors.New("--script and --serial are mutually exclusive")
	case scriptPath != "":
		s, err := hands.OpenScript(scriptPath, cfg.FrameInterval)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("replaying script", "path", scriptPath)
		return s, nil, nil
	case cfg.Serial != "":
		s, err := hands.OpenSerial(cfg.Serial, cfg.Baud, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}
	q := hands.NewQueue(cfg.FrameInterval)
	return q, q, nil
}

// newSession loads the chord table, opens the output and builds the session.
// Every failure here is fatal at startup.
func newSession(cfg config.Config, logger *log.Logger, displays ...engine.Display) (*engine.Session, error) {
	table, err := chords.LoadFile(cfg.Chords, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load chords: %w", err)
	}
	port, err := openPort(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}

	opts := append(cfg.SessionOptions(), engine.WithLogger(logger), engine.WithDisplay(displays...))
	sess, err := engine.NewSession(table, port, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return sess, nil
}

func closeSource(src hands.Source) {
	if c, ok := src.(io.Closer); ok {
		_ = c.Close()
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

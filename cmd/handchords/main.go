// Package main is the entry point for the handchords CLI
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	chordsPath string
	debug      bool
	logFormat  string
	logFile    string

	midiPort      string
	channel       uint8
	sustain       time.Duration
	hold          time.Duration
	velocity      uint8
	frameInterval time.Duration
	dryRun        bool
	recordPath    string
	scriptPath    string
	serialDevice  string
	baud          int
	listenAddr    string
	noTUI         bool
)

func main() {
	err := rootCmd.Execute()
	if logOutput != nil {
		_ = logOutput.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "handchords",
	Short: "Play MIDI chords with hand gestures",
	Long: `handchords turns per-finger up/down states from a hand tracker into MIDI.

Raising a finger plays the chord mapped to it; lowering it releases the chord
after a short sustain. Holding both hands fully open switches instrument.

Examples:
  handchords play                       # keyboard-driven fingers in the terminal
  handchords play --script take.jsonl   # replay recorded frames
  handchords play --serial /dev/ttyUSB0 # frames from a serial tracker
  handchords serve --listen :8080       # accept frames over HTTP
  handchords chords chords.txt
  handchords config -c handchords.yaml > merged.yaml
  handchords ports`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: setupLogging,
	SilenceUsage:      true,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run a session with the terminal UI",
	RunE:  runPlay,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a headless session with the API server",
	RunE:  runServe,
}

var chordsCmd = &cobra.Command{
	Use:   "chords [file]",
	Short: "Load a chord mapping and print it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChords,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE:  runConfig,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI outputs and serial devices",
	RunE:  runPorts,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&chordsPath, "chords", "chords.txt", "Chord mapping file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json, logfmt)")

	// Session flags
	for _, cmd := range []*cobra.Command{playCmd, serveCmd} {
		addSessionFlags(cmd)
	}

	// play command
	playCmd.Flags().StringVar(&logFile, "log-file", "handchords.log", "Log file while the terminal UI runs")
	playCmd.Flags().BoolVar(&noTUI, "no-tui", false, "Log the display instead of drawing it")

	// serve command
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8080", "API listen address")

	// Add commands
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chordsCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(configCmd)
}

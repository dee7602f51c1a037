package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/engine"
	"github.com/james-see/handchords/pkg/tui"
	"github.com/spf13/cobra"
)

func runPlay(cmd *cobra.Command, args []string) error {
	logger := log.FromContext(cmd.Context())
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src, keyboard, err := openSource(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if noTUI {
		sess, err := newSession(cfg, logger, engine.NewLogDisplay(logger))
		if err != nil {
			closeSource(src)
			return err
		}
		if keyboard != nil {
			logger.Warn("no frame source given; the session will see no hands until --script or --serial is used")
		}
		return sess.Run(ctx, src)
	}

	display := tui.NewDisplay()
	sess, err := newSession(cfg, logger, display)
	if err != nil {
		closeSource(src)
		return err
	}
	fmt.Printf("Session %s: logging to %s\n", sess.ID(), logFile)
	return tui.Run(ctx, tui.Config{
		Session:  sess,
		Source:   src,
		Display:  display,
		Keyboard: keyboard,
	})
}

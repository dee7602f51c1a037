package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/api"
	"github.com/james-see/handchords/pkg/engine"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.FromContext(cmd.Context())
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src, frames, err := openSource(cfg, logger)
	if err != nil {
		return err
	}

	board := api.NewBoard()
	sess, err := newSession(cfg, logger, board, engine.NewLogDisplay(logger))
	if err != nil {
		closeSource(src)
		return err
	}
	srv := api.NewServer(sess, board, frames, logger)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	fmt.Printf("Starting handchords API server on %s...\n", cfg.Listen)
	fmt.Println("Swagger docs available at /swagger/index.html")

	// A finished script ends the session but the API stays up for status
	// queries until the process is stopped.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Listen)
	})
	g.Go(func() error {
		return sess.Run(ctx, src)
	})
	return g.Wait()
}

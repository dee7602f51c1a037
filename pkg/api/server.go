// Package api provides the REST API server for handchords: session status,
// the loaded chord table, and frame injection for external hand trackers
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/engine"
	"github.com/james-see/handchords/pkg/hands"
	"github.com/james-see/handchords/pkg/output"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Handchords API
// @version 1.0
// @description Live status and frame injection for a gesture-to-MIDI session
// @host localhost:8080
// @BasePath /api/v1

// Board keeps the latest session view for the status endpoint
type Board struct {
	mu   sync.RWMutex
	view engine.View
	ok   bool
}

// NewBoard returns an empty board
func NewBoard() *Board {
	return &Board{}
}

// Show implements engine.Display
func (b *Board) Show(v engine.View) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view = v
	b.ok = true
}

// Latest returns the last view and whether one has been shown yet
func (b *Board) Latest() (engine.View, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.view, b.ok
}

// Server serves the API for one session
type Server struct {
	id          string
	table       *chords.Table
	instruments []output.Instrument
	board       *Board
	frames      *hands.Queue
	logger      *log.Logger
	started     time.Time
	router      *gin.Engine
}

// NewServer builds the router. frames may be nil when the session reads from
// a script or serial tracker; POST /frames then answers 409.
func NewServer(session *engine.Session, board *Board, frames *hands.Queue, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		id:          session.ID(),
		table:       session.Table(),
		instruments: session.Instruments(),
		board:       board,
		frames:      frames,
		logger:      logger,
		started:     time.Now(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/status", s.status)
		v1.GET("/chords", s.listChords)
		v1.GET("/instruments", s.listInstruments)
		v1.POST("/frames", s.pushFrame)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Handler returns the router wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(s.router)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("api: request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "handchords",
	})
}

// status godoc
// @Summary Session status
// @Description Returns the latest derived view: chord text, instrument, gesture hint and finger states
// @Tags session
// @Produce json
// @Success 200 {object} engine.View
// @Router /api/v1/status [get]
func (s *Server) status(c *gin.Context) {
	v, ok := s.board.Latest()
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"session_id": s.id,
			"frame":      0,
			"uptime":     time.Since(s.started).Round(time.Second).String(),
		})
		return
	}
	c.JSON(http.StatusOK, v)
}

type chordJSON struct {
	Hand   string   `json:"hand"`
	Finger string   `json:"finger"`
	Name   string   `json:"name"`
	Label  string   `json:"label"`
	Notes  []int    `json:"notes"`
	Names  []string `json:"note_names"`
}

// listChords godoc
// @Summary List the chord table
// @Description Returns every mapped finger with its chord, plus rows skipped while loading
// @Tags info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/chords [get]
func (s *Server) listChords(c *gin.Context) {
	entries := s.table.Entries()
	out := make([]chordJSON, 0, len(entries))
	for _, e := range entries {
		cj := chordJSON{
			Hand:   e.Hand.String(),
			Finger: e.Finger.String(),
			Name:   e.Name,
			Label:  e.Label,
		}
		for _, n := range e.Notes {
			cj.Notes = append(cj.Notes, int(n))
			cj.Names = append(cj.Names, n.Name())
		}
		out = append(out, cj)
	}

	skipped := make([]string, 0)
	for _, d := range s.table.Diagnostics() {
		skipped = append(skipped, d.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"chords":  out,
		"skipped": skipped,
	})
}

// listInstruments godoc
// @Summary List instruments
// @Description Returns the instrument cycle and the selected index
// @Tags info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/instruments [get]
func (s *Server) listInstruments(c *gin.Context) {
	current := 0
	if v, ok := s.board.Latest(); ok {
		current = v.InstrumentIndex
	}
	c.JSON(http.StatusOK, gin.H{
		"instruments": s.instruments,
		"current":     current,
	})
}

// pushFrame godoc
// @Summary Push a hand frame
// @Description Replaces the pose the session sees each frame, e.g. {"hands":[{"hand":"left","fingers":[1,0,0,0,0]}]}
// @Tags session
// @Accept json
// @Produce json
// @Param frame body hands.Frame true "Detected hands"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/frames [post]
func (s *Server) pushFrame(c *gin.Context) {
	if s.frames == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "session is not reading frames from the API"})
		return
	}
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}
	frame, err := hands.ParseFrame(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.frames.Push(frame.Snapshot()); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"hands":  len(frame.Hands),
		"pushes": s.frames.Pushes(),
	})
}

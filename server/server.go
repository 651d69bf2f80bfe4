// Package server exposes the conversation engine over HTTP: the browser
// WebSocket bridge plus a couple of helper endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trustmed/core"
)

const shutdownTimeout = 5 * time.Second

// Opts configures the HTTP server.
type Opts struct {
	Addr   string
	Bridge *core.ExternalEventHandler
	Logger *core.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Opts) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts.Bridge)
	return router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts Opts) error {
	if opts.Bridge == nil {
		return errors.New("server: bridge is required")
	}
	if opts.Logger == nil {
		opts.Logger = core.GetLogger()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	gin.SetMode(gin.ReleaseMode)
	opts.Bridge.Initialize(ctx)

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			opts.Logger.Warn("server shutdown", "error", err)
		}
	}()

	opts.Logger.Info("listening", "addr", opts.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

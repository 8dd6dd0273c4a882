// Package api exposes a session over HTTP: REST actions plus a
// Server-Sent Events stream of transcript changes.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/allbin/serialterm/internal/api/handlers"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Router holds the Gin engine and the observed session
type Router struct {
	engine   *gin.Engine
	terminal handlers.Terminal
}

// NewRouter creates a new API router
func NewRouter(terminal handlers.Terminal) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine:   engine,
		terminal: terminal,
	}
	router.setupRoutes()
	return router
}

func (r *Router) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(r.terminal)
	r.engine.GET("/health", healthHandler.Health)

	sessionHandler := handlers.NewSessionHandler(r.terminal)
	eventsHandler := handlers.NewEventsHandler(r.terminal)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		v1.GET("/ports", sessionHandler.ListPorts)
		v1.GET("/state", sessionHandler.GetState)
		v1.POST("/connect", sessionHandler.Connect)
		v1.POST("/disconnect", sessionHandler.Disconnect)
		v1.POST("/send", sessionHandler.Send)
		v1.GET("/transcript", sessionHandler.Transcript)
		v1.GET("/events", eventsHandler.Events)
	}
}

// Handler returns the underlying http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Serve runs the HTTP server on addr until ctx is cancelled
func (r *Router) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// Package remote exposes a small HTTP API for driving the presenter from
// another device. Handlers never touch engine state: navigation requests
// are injected into the event loop as ordinary events, and status is read
// from the loop's last published snapshot.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cdown/beamview/engine"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Server is the remote control HTTP server.
type Server struct {
	echo   *echo.Echo
	inject func(engine.Event)
	status atomic.Value // engine.Status
}

// New builds the server around an event injector (Platform.Inject).
func New(inject func(engine.Event)) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	s := &Server{echo: e, inject: inject}
	s.status.Store(engine.Status{})

	e.POST("/api/next", s.postNext)
	e.POST("/api/previous", s.postPrevious)
	e.POST("/api/goto/:page", s.postGoTo)
	e.GET("/api/status", s.getStatus)
	return s
}

// Publish stores the loop's latest snapshot for /api/status.
func (s *Server) Publish(st engine.Status) {
	s.status.Store(st)
}

// Start listens on addr. It blocks, so run it on its own goroutine; the
// presenter keeps working if the listener fails.
func (s *Server) Start(addr string) {
	Logger.Info("Remote control listening", "address", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Remote control server stopped", "error", err)
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) postNext(c echo.Context) error {
	s.inject(engine.Event{Kind: engine.EventNext})
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) postPrevious(c echo.Context) error {
	s.inject(engine.Event{Kind: engine.EventPrevious})
	return c.NoContent(http.StatusAccepted)
}

// postGoTo takes a 1-based page number, as a human reads it off a slide.
func (s *Server) postGoTo(c echo.Context) error {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("invalid page number %q", c.Param("page")),
		})
	}
	st := s.status.Load().(engine.Status)
	if st.PageCount > 0 && page > st.PageCount {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("page %d beyond document end (%d pages)", page, st.PageCount),
		})
	}
	s.inject(engine.Event{Kind: engine.EventGoTo, Page: page - 1})
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.status.Load().(engine.Status))
}

package server

import (
	"context"
	"errors"
	"fmt"
	"gdsync/internal/engine"
	"gdsync/internal/logger"
	"gdsync/internal/model"
	"gdsync/internal/progress"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 20

type StatusSource interface {
	Status() engine.Status
	Progress() []progress.Item
}

type HistorySource interface {
	GetRecent(limit int) ([]model.History, error)
}

// Server exposes read-only run status on localhost.
type Server struct {
	echo    *echo.Echo
	status  StatusSource
	history HistorySource
	port    int
}

func New(status StatusSource, history HistorySource, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		status:  status,
		history: history,
		port:    port,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.GET("/progress", s.handleProgress)
	s.echo.GET("/history", s.handleHistory)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", s.port)
}

func (s *Server) Start() {
	go func() {
		addr := s.Addr()
		logger.Log.Info("status server started", zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("status server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.status.Status())
}

func (s *Server) handleProgress(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"files": s.status.Progress(),
	})
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.history == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "history disabled"})
	}

	n := defaultHistoryLimit
	if nStr := c.QueryParam("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid n"})
		}
		n = parsed
	}

	histories, err := s.history.GetRecent(n)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, histories)
}

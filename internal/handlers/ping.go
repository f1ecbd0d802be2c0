package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PingHandler serves liveness and readiness probes.
type PingHandler struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPingHandler creates a PingHandler.
func NewPingHandler(log *slog.Logger, pool *pgxpool.Pool) *PingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PingHandler{
		pool:   pool,
		logger: log.With(slog.String("handler", "ping")),
	}
}

// Register registers probe routes.
func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.GET("/health", h.Health)
}

// Ping reports process liveness.
func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Health additionally pings the database.
func (h *PingHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.pool.Ping(ctx); err != nil {
		h.logger.Warn("database ping failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

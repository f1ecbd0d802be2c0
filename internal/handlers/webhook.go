package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/inboxd/inboxd/internal/channel"
	"github.com/inboxd/inboxd/internal/gateway"
	"github.com/inboxd/inboxd/internal/ingest"
)

// webhookTokenHeader authenticates gateway deliveries in place of JWT.
const webhookTokenHeader = "X-Webhook-Token"

// Ingestor runs the inbound pipeline for one delivery.
type Ingestor interface {
	Ingest(ctx context.Context, companyID, channelID string, payload gateway.InboundPayload) (ingest.Outcome, error)
}

// ChannelGetter loads channel rows for ownership checks.
type ChannelGetter interface {
	Get(ctx context.Context, id string) (channel.Channel, error)
}

// WebhookHandler receives inbound message deliveries from the gateway.
type WebhookHandler struct {
	ingestor Ingestor
	channels ChannelGetter
	token    string
	logger   *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(log *slog.Logger, ingestor Ingestor, channels ChannelGetter, token string) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		ingestor: ingestor,
		channels: channels,
		token:    token,
		logger:   log.With(slog.String("handler", "webhook")),
	}
}

// Register registers the gateway ingestion route.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhooks/gateway/:company_id/:channel_id", h.Receive)
}

// Receive ingests one delivery. Duplicates answer 208 so the gateway stops
// redelivering; ingestion errors answer 500 so it retries.
func (h *WebhookHandler) Receive(c echo.Context) error {
	if subtle.ConstantTimeCompare([]byte(c.Request().Header.Get(webhookTokenHeader)), []byte(h.token)) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook token")
	}

	companyID := c.Param("company_id")
	channelID := c.Param("channel_id")
	if _, err := uuid.Parse(companyID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid company id")
	}
	if _, err := uuid.Parse(channelID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid channel id")
	}

	ch, err := h.channels.Get(c.Request().Context(), channelID)
	if errors.Is(err, channel.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "channel not found")
	}
	if err != nil {
		h.logger.Error("channel lookup failed", slog.String("error", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "channel lookup failed")
	}
	if ch.CompanyID != companyID {
		return echo.NewHTTPError(http.StatusNotFound, "channel not found")
	}

	var payload gateway.InboundPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	out, err := h.ingestor.Ingest(c.Request().Context(), companyID, channelID, payload)
	if err != nil {
		h.logger.Error("ingestion failed",
			slog.String("company_id", companyID),
			slog.String("channel_id", channelID),
			slog.String("error", err.Error()),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "ingestion failed")
	}
	if out.Duplicate {
		return c.JSON(http.StatusAlreadyReported, map[string]string{
			"session_id": out.SessionID,
			"status":     "duplicate",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"session_id": out.SessionID,
		"message_id": out.MessageID,
		"status":     "stored",
	})
}

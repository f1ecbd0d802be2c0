package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inboxd/inboxd/internal/conversation"
	"github.com/inboxd/inboxd/internal/gateway"
	"github.com/inboxd/inboxd/internal/message"
	"github.com/inboxd/inboxd/internal/reply"
)

// ContactResolver resolves inbound phone numbers to contacts.
type ContactResolver interface {
	Resolve(ctx context.Context, companyID, phoneNumber, displayName string) (string, error)
}

// ConversationResolver resolves chat identifiers to conversations and keeps
// their summaries current.
type ConversationResolver interface {
	Resolve(ctx context.Context, channelID, chatID, contactID, displayName string) (string, error)
	RefreshSummary(ctx context.Context, id string, summary conversation.Summary) error
}

// MessageWriter persists inbound messages.
type MessageWriter interface {
	Persist(ctx context.Context, input message.PersistInput) (string, error)
}

// ReplyQueue accepts sessions for asynchronous reply resolution.
type ReplyQueue interface {
	Enqueue(sessionID string) (*reply.Task, error)
}

// Outcome reports what one ingestion run did.
type Outcome struct {
	SessionID string
	MessageID string
	Duplicate bool
}

// Service runs the inbound pipeline: normalize, resolve contact and
// conversation, store the message, refresh the summary, then hand the
// session to the reply queue. It returns before the reply resolves.
type Service struct {
	contacts      ContactResolver
	conversations ConversationResolver
	messages      MessageWriter
	replies       ReplyQueue
	logger        *slog.Logger
}

// NewService creates an ingestion service.
func NewService(
	log *slog.Logger,
	contacts ContactResolver,
	conversations ConversationResolver,
	messages MessageWriter,
	replies ReplyQueue,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		contacts:      contacts,
		conversations: conversations,
		messages:      messages,
		replies:       replies,
		logger:        log.With(slog.String("service", "ingest")),
	}
}

// Ingest processes one gateway delivery. A duplicate delivery stops after the
// conflict-guarded insert and reports Duplicate without touching anything
// else. Datastore errors propagate so the gateway retries the delivery.
func (s *Service) Ingest(ctx context.Context, companyID, channelID string, payload gateway.InboundPayload) (Outcome, error) {
	in := gateway.Normalize(payload)

	contactID, err := s.contacts.Resolve(ctx, companyID, in.From, in.DisplayName)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve contact: %w", err)
	}

	sessionID, err := s.conversations.Resolve(ctx, channelID, in.ChatID, contactID, in.DisplayName)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve conversation: %w", err)
	}

	messageID, err := s.messages.Persist(ctx, message.NewInbound(companyID, sessionID, in.ExternalID, in.Body, in.Timestamp))
	if errors.Is(err, message.ErrDuplicate) {
		return Outcome{SessionID: sessionID, Duplicate: true}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("store message: %w", err)
	}

	// The summary lags behind the message on failure and heals on the
	// next delivery, so this never fails the ingestion.
	if err := s.conversations.RefreshSummary(ctx, sessionID, conversation.Summary{
		Body:      in.Body,
		At:        in.Timestamp,
		Direction: conversation.DirectionInbound,
		Sender:    conversation.SenderContact,
	}); err != nil {
		s.logger.Warn("refresh summary failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	if _, err := s.replies.Enqueue(sessionID); err != nil {
		s.logger.Warn("reply not queued",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	return Outcome{SessionID: sessionID, MessageID: messageID}, nil
}

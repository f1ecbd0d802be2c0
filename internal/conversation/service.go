package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/inboxd/inboxd/internal/db"
)

// ErrNotFound is returned when a conversation id does not exist.
var ErrNotFound = errors.New("conversation not found")

// Service resolves and mutates conversations.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a conversation service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "conversation")),
	}
}

// Resolve finds the conversation for (channel, chat identifier) or creates
// one with status open. On every inbound message it refreshes the contact
// name, reopens a resolved/closed conversation, and clears any snooze.
// The reopening rule is unconditional.
func (s *Service) Resolve(ctx context.Context, channelID, chatID, contactID, displayName string) (string, error) {
	pgChannelID, err := dbpkg.ParseUUID(channelID)
	if err != nil {
		return "", fmt.Errorf("invalid channel id: %w", err)
	}
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return "", fmt.Errorf("chat identifier is required")
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`SELECT id FROM conversations WHERE channel_id = $1 AND chat_identifier = $2`,
		pgChannelID, chatID,
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		pgContactID, err := dbpkg.ParseUUID(contactID)
		if err != nil {
			return "", fmt.Errorf("invalid contact id: %w", err)
		}
		id = uuid.NewString()
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO conversations (id, channel_id, chat_identifier, contact_id, contact_name, status)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, pgChannelID, chatID, pgContactID, strings.TrimSpace(displayName), StatusOpen,
		); err != nil {
			return "", fmt.Errorf("create conversation: %w", err)
		}
		s.logger.Debug("conversation created",
			slog.String("session_id", id),
			slog.String("channel_id", channelID),
		)
		return id, nil
	case err != nil:
		return "", fmt.Errorf("lookup conversation: %w", err)
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE conversations SET
		   contact_name = COALESCE(NULLIF($2, ''), contact_name),
		   status = CASE WHEN status IN ($3, $4) THEN $5 ELSE status END,
		   snoozed_until = NULL,
		   updated_at = now()
		 WHERE id = $1`,
		id, strings.TrimSpace(displayName), StatusResolved, StatusClosed, StatusOpen,
	); err != nil {
		return "", fmt.Errorf("reopen conversation: %w", err)
	}
	return id, nil
}

// Get loads a conversation by id.
func (s *Service) Get(ctx context.Context, id string) (Conversation, error) {
	pgID, err := dbpkg.ParseUUID(id)
	if err != nil {
		return Conversation{}, fmt.Errorf("invalid session id: %w", err)
	}
	var conv Conversation
	err = s.pool.QueryRow(ctx,
		`SELECT id, channel_id, chat_identifier, contact_id, contact_name, status,
		        snoozed_until, human_takeover, auto_resume_at,
		        last_message, last_message_at, last_message_direction, last_message_sender,
		        created_at, updated_at
		 FROM conversations WHERE id = $1`,
		pgID,
	).Scan(
		&conv.ID, &conv.ChannelID, &conv.ChatIdentifier, &conv.ContactID, &conv.ContactName, &conv.Status,
		&conv.SnoozedUntil, &conv.HumanTakeover, &conv.AutoResumeAt,
		&conv.LastMessage, &conv.LastMessageAt, &conv.LastMessageDirection, &conv.LastMessageSender,
		&conv.CreatedAt, &conv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("load conversation: %w", err)
	}
	return conv, nil
}

// RefreshSummary updates the conversation's last-message summary fields.
func (s *Service) RefreshSummary(ctx context.Context, id string, summary Summary) error {
	pgID, err := dbpkg.ParseUUID(id)
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE conversations SET
		   last_message = $2, last_message_at = $3,
		   last_message_direction = $4, last_message_sender = $5,
		   updated_at = now()
		 WHERE id = $1`,
		pgID, summary.Body, summary.At, summary.Direction, summary.Sender,
	); err != nil {
		return fmt.Errorf("refresh conversation summary: %w", err)
	}
	return nil
}

// ClearTakeover clears an expired human takeover and its auto-resume timer.
func (s *Service) ClearTakeover(ctx context.Context, id string) error {
	pgID, err := dbpkg.ParseUUID(id)
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE conversations SET human_takeover = FALSE, auto_resume_at = NULL, updated_at = now()
		 WHERE id = $1`,
		pgID,
	); err != nil {
		return fmt.Errorf("clear takeover: %w", err)
	}
	s.logger.Info("human takeover expired", slog.String("session_id", id))
	return nil
}

package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inboxd/inboxd/internal/conversation"
	dbpkg "github.com/inboxd/inboxd/internal/db"
)

// Message statuses.
const (
	StatusReceived = "received"
	StatusSent     = "sent"
)

// ErrDuplicate signals that a message with the same external id has already
// been recorded for the company. The unique index is the dedup authority;
// there is no read-before-write.
var ErrDuplicate = errors.New("message already recorded")

// Message is an immutable append-only record on a conversation.
type Message struct {
	ID                string
	CompanyID         string
	SessionID         string
	ExternalMessageID string
	Direction         string
	SenderType        string
	Body              string
	Status            string
	Read              bool
	MessageTS         time.Time
	CreatedAt         time.Time
}

// PersistInput describes a message row to insert.
type PersistInput struct {
	CompanyID         string
	SessionID         string
	ExternalMessageID string
	Direction         string
	SenderType        string
	Body              string
	Status            string
	Read              bool
	MessageTS         time.Time
}

// Service persists and reads conversation messages.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a message service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "message")),
	}
}

// Persist inserts a message row. When the input carries an external id the
// insert is conflict-guarded on (company_id, external_message_id); a
// conflicting insert returns ErrDuplicate without writing anything.
func (s *Service) Persist(ctx context.Context, input PersistInput) (string, error) {
	pgCompanyID, err := dbpkg.ParseUUID(input.CompanyID)
	if err != nil {
		return "", fmt.Errorf("invalid company id: %w", err)
	}
	pgSessionID, err := dbpkg.ParseUUID(input.SessionID)
	if err != nil {
		return "", fmt.Errorf("invalid session id: %w", err)
	}
	id := uuid.NewString()
	ts := input.MessageTS
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var returned string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO messages (id, company_id, session_id, external_message_id,
		                       direction, sender_type, body, status, read, message_ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (company_id, external_message_id) WHERE external_message_id IS NOT NULL
		 DO NOTHING
		 RETURNING id`,
		id, pgCompanyID, pgSessionID, dbpkg.ToPgText(input.ExternalMessageID),
		input.Direction, input.SenderType, input.Body, input.Status, input.Read, ts,
	).Scan(&returned)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Debug("duplicate delivery dropped",
			slog.String("company_id", input.CompanyID),
			slog.String("external_message_id", input.ExternalMessageID),
		)
		return "", ErrDuplicate
	}
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}
	return returned, nil
}

// ListLatest returns the most recent limit messages for a conversation in
// chronological order (the query reads newest-first and reverses).
func (s *Service) ListLatest(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	pgSessionID, err := dbpkg.ParseUUID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, session_id, COALESCE(external_message_id, ''),
		        direction, sender_type, body, status, read, message_ts, created_at
		 FROM messages
		 WHERE session_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		pgSessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.CompanyID, &m.SessionID, &m.ExternalMessageID,
			&m.Direction, &m.SenderType, &m.Body, &m.Status, &m.Read, &m.MessageTS, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]Message, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		messages = append(messages, newestFirst[i])
	}
	return messages, nil
}

// NewInbound builds the persist input for an inbound contact message.
func NewInbound(companyID, sessionID, externalID, body string, ts time.Time) PersistInput {
	return PersistInput{
		CompanyID:         companyID,
		SessionID:         sessionID,
		ExternalMessageID: strings.TrimSpace(externalID),
		Direction:         conversation.DirectionInbound,
		SenderType:        conversation.SenderContact,
		Body:              body,
		Status:            StatusReceived,
		Read:              false,
		MessageTS:         ts,
	}
}

// NewOutboundAI builds the persist input for an AI-generated outbound message.
func NewOutboundAI(companyID, sessionID, externalID, body string, ts time.Time) PersistInput {
	return PersistInput{
		CompanyID:         companyID,
		SessionID:         sessionID,
		ExternalMessageID: strings.TrimSpace(externalID),
		Direction:         conversation.DirectionOutbound,
		SenderType:        conversation.SenderAI,
		Body:              body,
		Status:            StatusSent,
		Read:              true,
		MessageTS:         ts,
	}
}

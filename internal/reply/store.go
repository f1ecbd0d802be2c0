package reply

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/inboxd/inboxd/internal/db"
)

// DispatchStore records reply dispatch attempts so failures are visible
// instead of living only in logs.
type DispatchStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewDispatchStore creates a dispatch store.
func NewDispatchStore(log *slog.Logger, pool *pgxpool.Pool) *DispatchStore {
	if log == nil {
		log = slog.Default()
	}
	return &DispatchStore{
		pool:   pool,
		logger: log.With(slog.String("service", "dispatch_store")),
	}
}

// Create inserts a pending dispatch row once a decision to send exists.
func (s *DispatchStore) Create(ctx context.Context, id, sessionID, channelID, kind string) error {
	pgID, err := dbpkg.ParseUUID(id)
	if err != nil {
		return fmt.Errorf("invalid dispatch id: %w", err)
	}
	pgSessionID, err := dbpkg.ParseUUID(sessionID)
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}
	pgChannelID, err := dbpkg.ParseUUID(channelID)
	if err != nil {
		return fmt.Errorf("invalid channel id: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO ai_dispatches (id, session_id, channel_id, kind, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		pgID, pgSessionID, pgChannelID, kind, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("insert dispatch: %w", err)
	}
	return nil
}

// Finish moves a dispatch row to its terminal status.
func (s *DispatchStore) Finish(ctx context.Context, id, status string, attempts int, lastError, body string) error {
	pgID, err := dbpkg.ParseUUID(id)
	if err != nil {
		return fmt.Errorf("invalid dispatch id: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE ai_dispatches
		 SET status = $2, attempts = $3, last_error = $4, body = $5, updated_at = now()
		 WHERE id = $1`,
		pgID, status, attempts, lastError, body,
	)
	if err != nil {
		return fmt.Errorf("update dispatch: %w", err)
	}
	return nil
}

// PruneTerminal deletes terminal dispatch rows older than the cutoff and
// returns how many went away.
func (s *DispatchStore) PruneTerminal(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM ai_dispatches
		 WHERE status IN ($1, $2, $3) AND updated_at < $4`,
		StatusSent, StatusFailed, StatusSkipped, olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("prune dispatches: %w", err)
	}
	return tag.RowsAffected(), nil
}

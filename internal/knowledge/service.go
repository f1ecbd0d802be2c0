package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/inboxd/inboxd/internal/db"
)

// Entry is a titled reference text the agent may cite.
type Entry struct {
	ID        string
	Title     string
	Content   string
	Position  int
	CreatedAt time.Time
}

// Service resolves knowledge-base visibility for channels.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a knowledge service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "knowledge")),
	}
}

// VisibleToChannel returns the entry set a channel may use. Explicit
// assignment rows restrict visibility to exactly those entries; no
// assignments means the whole company-wide set is visible.
func (s *Service) VisibleToChannel(ctx context.Context, companyID, channelID string) ([]Entry, error) {
	pgChannelID, err := dbpkg.ParseUUID(channelID)
	if err != nil {
		return nil, fmt.Errorf("invalid channel id: %w", err)
	}

	assigned, err := s.scanEntries(ctx,
		`SELECT e.id, e.title, e.content, e.position, e.created_at
		 FROM kb_entries e
		 JOIN kb_assignments a ON a.entry_id = e.id
		 WHERE a.channel_id = $1
		 ORDER BY e.position, e.created_at`,
		pgChannelID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assigned entries: %w", err)
	}
	if len(assigned) > 0 {
		return assigned, nil
	}

	pgCompanyID, err := dbpkg.ParseUUID(companyID)
	if err != nil {
		return nil, fmt.Errorf("invalid company id: %w", err)
	}
	all, err := s.scanEntries(ctx,
		`SELECT id, title, content, position, created_at
		 FROM kb_entries
		 WHERE company_id = $1
		 ORDER BY position, created_at`,
		pgCompanyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list company entries: %w", err)
	}
	return all, nil
}

func (s *Service) scanEntries(ctx context.Context, query string, arg any) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Title, &e.Content, &e.Position, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

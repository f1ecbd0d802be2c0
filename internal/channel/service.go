package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/inboxd/inboxd/internal/db"
)

// StatusConnected is the only channel status allowed to send.
const StatusConnected = "connected"

// ErrNotFound is returned when a channel id does not exist.
var ErrNotFound = errors.New("channel not found")

// Channel is one connected messaging endpoint. Provisioning and pairing live
// outside this system; the pipeline only reads the row.
type Channel struct {
	ID         string
	CompanyID  string
	Status     string
	Credential string
}

// Connected reports whether the channel may send through the gateway.
func (c Channel) Connected() bool {
	return c.Status == StatusConnected && c.Credential != ""
}

// Service reads channel and company rows.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a channel service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "channel")),
	}
}

// Get loads a channel by id.
func (s *Service) Get(ctx context.Context, id string) (Channel, error) {
	pgID, err := dbpkg.ParseUUID(id)
	if err != nil {
		return Channel{}, fmt.Errorf("invalid channel id: %w", err)
	}
	var ch Channel
	err = s.pool.QueryRow(ctx,
		`SELECT id, company_id, status, credential FROM channels WHERE id = $1`,
		pgID,
	).Scan(&ch.ID, &ch.CompanyID, &ch.Status, &ch.Credential)
	if errors.Is(err, pgx.ErrNoRows) {
		return Channel{}, ErrNotFound
	}
	if err != nil {
		return Channel{}, fmt.Errorf("load channel: %w", err)
	}
	return ch, nil
}

// CompanyTimezone returns the owning company's IANA timezone.
func (s *Service) CompanyTimezone(ctx context.Context, companyID string) (string, error) {
	pgID, err := dbpkg.ParseUUID(companyID)
	if err != nil {
		return "", fmt.Errorf("invalid company id: %w", err)
	}
	var tz string
	err = s.pool.QueryRow(ctx, `SELECT timezone FROM companies WHERE id = $1`, pgID).Scan(&tz)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("company %s not found", companyID)
	}
	if err != nil {
		return "", fmt.Errorf("load company timezone: %w", err)
	}
	return tz, nil
}

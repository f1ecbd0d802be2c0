package contact

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

	dbpkg "github.com/inboxd/inboxd/internal/db"
)

// Contact is an external party identified by company and phone number.
type Contact struct {
	ID          string
	CompanyID   string
	PhoneNumber string
	DisplayName string
	CreatedAt   time.Time
}

// Service resolves contacts against the datastore.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a contact service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "contact")),
	}
}

// Resolve finds the non-deleted contact for (company, phone) or creates one.
// A non-empty display name refreshes the stored name, last write wins.
func (s *Service) Resolve(ctx context.Context, companyID, phoneNumber, displayName string) (string, error) {
	pgCompanyID, err := dbpkg.ParseUUID(companyID)
	if err != nil {
		return "", fmt.Errorf("invalid company id: %w", err)
	}
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return "", fmt.Errorf("phone number is required")
	}
	displayName = strings.TrimSpace(displayName)

	var id, storedName string
	err = s.pool.QueryRow(ctx,
		`SELECT id, display_name FROM contacts
		 WHERE company_id = $1 AND phone_number = $2 AND deleted_at IS NULL`,
		pgCompanyID, phoneNumber,
	).Scan(&id, &storedName)
	switch {
	case err == nil:
		if displayName != "" && displayName != storedName {
			if _, err := s.pool.Exec(ctx,
				`UPDATE contacts SET display_name = $1, updated_at = now() WHERE id = $2`,
				displayName, id,
			); err != nil {
				return "", fmt.Errorf("update contact name: %w", err)
			}
		}
		return id, nil
	case errors.Is(err, pgx.ErrNoRows):
		id = uuid.NewString()
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO contacts (id, company_id, phone_number, display_name)
			 VALUES ($1, $2, $3, $4)`,
			id, pgCompanyID, phoneNumber, displayName,
		); err != nil {
			return "", fmt.Errorf("create contact: %w", err)
		}
		s.logger.Debug("contact created",
			slog.String("contact_id", id),
			slog.String("company_id", companyID),
		)
		return id, nil
	default:
		return "", fmt.Errorf("lookup contact: %w", err)
	}
}

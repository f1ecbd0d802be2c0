package agentcfg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/inboxd/inboxd/internal/db"
)

// ErrNotConfigured is returned when a channel has no agent configuration.
var ErrNotConfigured = errors.New("agent not configured for channel")

// Service loads channel agent configuration with template resolution.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates an agent configuration service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "agentcfg")),
	}
}

// GetForChannel loads the channel's agent configuration. When the row
// references a template, the template's profile replaces the channel's own.
func (s *Service) GetForChannel(ctx context.Context, channelID string) (Config, error) {
	pgChannelID, err := dbpkg.ParseUUID(channelID)
	if err != nil {
		return Config{}, fmt.Errorf("invalid channel id: %w", err)
	}

	var (
		cfg         Config
		profileRaw  []byte
		businessRaw []byte
		customRaw   []byte
		templateID  pgtype.UUID
	)
	err = s.pool.QueryRow(ctx,
		`SELECT channel_id, is_enabled, profile, max_tokens, schedule_mode,
		        business_hours, custom_schedule, outside_hours_message,
		        custom_instructions, greeting_override, template_id
		 FROM agent_configs WHERE channel_id = $1`,
		pgChannelID,
	).Scan(
		&cfg.ChannelID, &cfg.IsEnabled, &profileRaw, &cfg.MaxTokens, &cfg.ScheduleMode,
		&businessRaw, &customRaw, &cfg.OutsideHoursMessage,
		&cfg.CustomInstructions, &cfg.GreetingOverride, &templateID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{}, ErrNotConfigured
	}
	if err != nil {
		return Config{}, fmt.Errorf("load agent config: %w", err)
	}

	if err := unmarshalInto(profileRaw, &cfg.Profile); err != nil {
		return Config{}, fmt.Errorf("decode profile: %w", err)
	}
	if err := unmarshalInto(businessRaw, &cfg.BusinessHours); err != nil {
		return Config{}, fmt.Errorf("decode business hours: %w", err)
	}
	if err := unmarshalInto(customRaw, &cfg.CustomSchedule); err != nil {
		return Config{}, fmt.Errorf("decode custom schedule: %w", err)
	}

	if templateID.Valid {
		cfg.TemplateID = templateID.String()
		var templateRaw []byte
		err = s.pool.QueryRow(ctx,
			`SELECT profile FROM agent_templates WHERE id = $1`,
			templateID,
		).Scan(&templateRaw)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// A dangling template reference falls back to the channel's
			// own profile.
			s.logger.Warn("agent template missing",
				slog.String("channel_id", channelID),
				slog.String("template_id", cfg.TemplateID),
			)
		case err != nil:
			return Config{}, fmt.Errorf("load agent template: %w", err)
		default:
			var templateProfile Profile
			if err := unmarshalInto(templateRaw, &templateProfile); err != nil {
				return Config{}, fmt.Errorf("decode template profile: %w", err)
			}
			cfg.Profile = templateProfile
		}
	}

	return cfg, nil
}

func unmarshalInto(raw []byte, target any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}

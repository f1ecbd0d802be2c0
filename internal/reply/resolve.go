package reply

import (
	"log/slog"
	"time"

	"github.com/inboxd/inboxd/internal/agentcfg"
	"github.com/inboxd/inboxd/internal/completion"
	"github.com/inboxd/inboxd/internal/conversation"
	"github.com/inboxd/inboxd/internal/schedule"
)

func skip(reason string, clearTakeover bool) Decision {
	return Decision{Outcome: OutcomeSkip, Reason: reason, ClearTakeover: clearTakeover}
}

// Resolve runs the eligibility cascade over pre-fetched rows and returns the
// decision. The cascade short-circuits at the first disqualifying condition:
// missing channel, disabled agent, active human takeover, out-of-schedule.
// An expired auto_resume_at clears the takeover and continues instead.
func Resolve(log *slog.Logger, in ResolveInput) Decision {
	if log == nil {
		log = slog.Default()
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if in.Channel == nil {
		return skip("conversation has no channel", false)
	}
	cfg := in.Config
	if cfg == nil || !cfg.IsEnabled {
		return skip("agent not enabled", false)
	}

	clearTakeover := false
	if in.Conversation.HumanTakeover {
		resumeAt := in.Conversation.AutoResumeAt
		if resumeAt == nil || resumeAt.After(now) {
			return skip("human takeover active", false)
		}
		clearTakeover = true
	}

	if cfg.ScheduleMode != agentcfg.ScheduleAlwaysOn {
		week := cfg.BusinessHours
		if cfg.ScheduleMode == agentcfg.ScheduleCustom {
			week = cfg.CustomSchedule
		}
		if cfg.ScheduleMode == agentcfg.ScheduleCustom && len(week) == 0 {
			// Custom mode without a configured schedule runs
			// unrestricted rather than silencing the agent.
			log.Warn("custom schedule mode with no schedule configured, treating as always on",
				slog.String("channel_id", cfg.ChannelID),
			)
		} else {
			inWindow, err := schedule.InWindow(week, in.Timezone, now)
			if err != nil {
				log.Warn("schedule evaluation failed",
					slog.String("channel_id", cfg.ChannelID),
					slog.String("error", err.Error()),
				)
				return skip("schedule evaluation failed", clearTakeover)
			}
			if !inWindow {
				if cfg.OutsideHoursMessage != "" {
					return Decision{
						Outcome:          OutcomeOutsideHours,
						ClearTakeover:    clearTakeover,
						OutsideHoursText: cfg.OutsideHoursMessage,
					}
				}
				return skip("outside schedule", clearTakeover)
			}
		}
	}

	system := BuildPrompt(cfg.Profile, in.Entries, PromptOptions{
		GreetingOverride:   cfg.GreetingOverride,
		CustomInstructions: cfg.CustomInstructions,
	})

	messages := make([]completion.Message, 0, len(in.History))
	for _, m := range in.History {
		role := completion.RoleAssistant
		if m.Direction == conversation.DirectionInbound {
			role = completion.RoleUser
		}
		messages = append(messages, completion.Message{Role: role, Content: m.Body})
	}

	return Decision{
		Outcome:       OutcomeRespond,
		ClearTakeover: clearTakeover,
		Context: &PromptContext{
			System:    system,
			MaxTokens: cfg.MaxTokens,
			Messages:  messages,
		},
	}
}

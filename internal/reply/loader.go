package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inboxd/inboxd/internal/agentcfg"
	"github.com/inboxd/inboxd/internal/channel"
)

// Loader is the thin datastore adapter in front of Resolve. It fetches the
// rows one resolution needs so the decision itself stays free of I/O.
type Loader struct {
	conversations ConversationStore
	channels      ChannelStore
	configs       ConfigStore
	knowledge     KnowledgeStore
	messages      MessageStore
	historyLimit  int
	logger        *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(
	log *slog.Logger,
	conversations ConversationStore,
	channels ChannelStore,
	configs ConfigStore,
	kb KnowledgeStore,
	messages MessageStore,
	historyLimit int,
) *Loader {
	if log == nil {
		log = slog.Default()
	}
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Loader{
		conversations: conversations,
		channels:      channels,
		configs:       configs,
		knowledge:     kb,
		messages:      messages,
		historyLimit:  historyLimit,
		logger:        log.With(slog.String("service", "reply")),
	}
}

// Load fetches everything a resolution needs. Dependent rows are only read
// when their parents exist; a missing channel or configuration comes back as
// a nil field, never an error.
func (l *Loader) Load(ctx context.Context, sessionID string) (ResolveInput, error) {
	in := ResolveInput{Now: time.Now().UTC()}

	conv, err := l.conversations.Get(ctx, sessionID)
	if err != nil {
		return in, fmt.Errorf("load conversation: %w", err)
	}
	in.Conversation = conv

	if conv.ChannelID == "" {
		return in, nil
	}
	ch, err := l.channels.Get(ctx, conv.ChannelID)
	if errors.Is(err, channel.ErrNotFound) {
		return in, nil
	}
	if err != nil {
		return in, fmt.Errorf("load channel: %w", err)
	}
	in.Channel = &ch

	cfg, err := l.configs.GetForChannel(ctx, ch.ID)
	if errors.Is(err, agentcfg.ErrNotConfigured) {
		return in, nil
	}
	if err != nil {
		return in, fmt.Errorf("load agent config: %w", err)
	}
	in.Config = &cfg
	if !cfg.IsEnabled {
		return in, nil
	}

	in.Timezone, err = l.channels.CompanyTimezone(ctx, ch.CompanyID)
	if err != nil {
		return in, fmt.Errorf("load company timezone: %w", err)
	}
	in.Entries, err = l.knowledge.VisibleToChannel(ctx, ch.CompanyID, ch.ID)
	if err != nil {
		return in, fmt.Errorf("load knowledge entries: %w", err)
	}
	in.History, err = l.messages.ListLatest(ctx, sessionID, l.historyLimit)
	if err != nil {
		return in, fmt.Errorf("load history: %w", err)
	}
	return in, nil
}

// ClearTakeover persists an expired takeover clear.
func (l *Loader) ClearTakeover(ctx context.Context, sessionID string) error {
	return l.conversations.ClearTakeover(ctx, sessionID)
}

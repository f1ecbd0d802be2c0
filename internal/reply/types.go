package reply

import (
	"context"
	"time"

	"github.com/inboxd/inboxd/internal/agentcfg"
	"github.com/inboxd/inboxd/internal/channel"
	"github.com/inboxd/inboxd/internal/completion"
	"github.com/inboxd/inboxd/internal/conversation"
	"github.com/inboxd/inboxd/internal/knowledge"
	"github.com/inboxd/inboxd/internal/message"
)

// Outcomes of eligibility resolution.
const (
	OutcomeRespond      = "respond"
	OutcomeOutsideHours = "outside_hours"
	OutcomeSkip         = "skip"
)

// Dispatch kinds.
const (
	KindGenerated    = "generated"
	KindOutsideHours = "outside_hours"
)

// Dispatch statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ResolveInput carries every row the eligibility cascade reads, already
// fetched. Resolve itself never touches the datastore.
type ResolveInput struct {
	Conversation conversation.Conversation
	Channel      *channel.Channel
	Config       *agentcfg.Config
	Timezone     string
	Entries      []knowledge.Entry
	History      []message.Message
	Now          time.Time
}

// PromptContext is the fully assembled completion request context.
type PromptContext struct {
	System    string
	MaxTokens int
	Messages  []completion.Message
}

// Decision is the immutable result of one eligibility resolution.
type Decision struct {
	Outcome string
	// Reason explains a skip for logging; empty otherwise.
	Reason string
	// ClearTakeover is set when an expired human takeover should be
	// cleared on the conversation before anything else happens.
	ClearTakeover    bool
	OutsideHoursText string
	// Context is set only when Outcome is respond.
	Context *PromptContext
}

// ConversationStore is the conversation access the reply chain needs.
type ConversationStore interface {
	Get(ctx context.Context, id string) (conversation.Conversation, error)
	RefreshSummary(ctx context.Context, id string, summary conversation.Summary) error
	ClearTakeover(ctx context.Context, id string) error
}

// MessageStore persists outbound replies and reads history.
type MessageStore interface {
	Persist(ctx context.Context, input message.PersistInput) (string, error)
	ListLatest(ctx context.Context, sessionID string, limit int) ([]message.Message, error)
}

// ChannelStore reads channel rows and company timezones.
type ChannelStore interface {
	Get(ctx context.Context, id string) (channel.Channel, error)
	CompanyTimezone(ctx context.Context, companyID string) (string, error)
}

// ConfigStore loads template-resolved agent configuration.
type ConfigStore interface {
	GetForChannel(ctx context.Context, channelID string) (agentcfg.Config, error)
}

// KnowledgeStore resolves knowledge-base visibility.
type KnowledgeStore interface {
	VisibleToChannel(ctx context.Context, companyID, channelID string) ([]knowledge.Entry, error)
}

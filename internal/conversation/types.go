package conversation

import "time"

// Conversation statuses.
const (
	StatusOpen     = "open"
	StatusPending  = "pending"
	StatusResolved = "resolved"
	StatusClosed   = "closed"
)

// Message directions and sender types recorded on the summary.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	SenderContact = "contact"
	SenderHuman   = "human"
	SenderAI      = "ai"
)

// Conversation is the ongoing thread between one contact and one channel.
type Conversation struct {
	ID                   string
	ChannelID            string
	ChatIdentifier       string
	ContactID            string
	ContactName          string
	Status               string
	SnoozedUntil         *time.Time
	HumanTakeover        bool
	AutoResumeAt         *time.Time
	LastMessage          string
	LastMessageAt        *time.Time
	LastMessageDirection string
	LastMessageSender    string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Summary captures the fields refreshed on every stored message.
type Summary struct {
	Body      string
	At        time.Time
	Direction string
	Sender    string
}

package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/inboxd/inboxd/internal/channel"
	"github.com/inboxd/inboxd/internal/completion"
	"github.com/inboxd/inboxd/internal/conversation"
	"github.com/inboxd/inboxd/internal/gateway"
	"github.com/inboxd/inboxd/internal/message"
)

// Dispatcher executes a positive decision: it generates the reply when one is
// needed, sends it through the gateway, and records the outbound message.
type Dispatcher struct {
	gateway       gateway.Sender
	completion    completion.Service
	conversations ConversationStore
	messages      MessageStore
	chatSuffix    string
	logger        *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(
	log *slog.Logger,
	sender gateway.Sender,
	svc completion.Service,
	conversations ConversationStore,
	messages MessageStore,
	chatSuffix string,
) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		gateway:       sender,
		completion:    svc,
		conversations: conversations,
		messages:      messages,
		chatSuffix:    chatSuffix,
		logger:        log.With(slog.String("service", "dispatcher")),
	}
}

// RespondWithGeneratedReply calls the completion service with the assembled
// context and sends the extracted text. A completion answer with no text is a
// silent no-op.
func (d *Dispatcher) RespondWithGeneratedReply(ctx context.Context, conv conversation.Conversation, ch channel.Channel, promptCtx *PromptContext) (string, string, error) {
	resp, err := d.completion.Complete(ctx, completion.Request{
		System:    promptCtx.System,
		MaxTokens: promptCtx.MaxTokens,
		Messages:  promptCtx.Messages,
	})
	if err != nil {
		return StatusFailed, "", fmt.Errorf("generate reply: %w", err)
	}
	body := resp.Text()
	if body == "" {
		d.logger.Debug("completion returned no text", slog.String("session_id", conv.ID))
		return StatusSkipped, "", nil
	}
	return d.send(ctx, conv, ch, body)
}

// RespondWithOutsideHoursMessage sends the configured fallback text without
// touching the completion service.
func (d *Dispatcher) RespondWithOutsideHoursMessage(ctx context.Context, conv conversation.Conversation, ch channel.Channel, text string) (string, string, error) {
	return d.send(ctx, conv, ch, text)
}

// send is the shared delivery routine: qualify the chat identifier, require a
// connected channel, deliver, then persist the outbound message and refresh
// the conversation summary.
func (d *Dispatcher) send(ctx context.Context, conv conversation.Conversation, ch channel.Channel, body string) (string, string, error) {
	if !ch.Connected() {
		d.logger.Debug("channel not connected, reply dropped",
			slog.String("session_id", conv.ID),
			slog.String("channel_id", ch.ID),
		)
		return StatusSkipped, "", nil
	}

	chatID := conv.ChatIdentifier
	if !strings.Contains(chatID, "@") {
		chatID += d.chatSuffix
	}

	result, err := d.gateway.SendText(ctx, ch.Credential, chatID, body)
	if err != nil {
		return StatusFailed, "", fmt.Errorf("send reply: %w", err)
	}

	now := time.Now().UTC()
	_, err = d.messages.Persist(ctx, message.NewOutboundAI(ch.CompanyID, conv.ID, result.ExternalID, body, now))
	if err != nil && !errors.Is(err, message.ErrDuplicate) {
		return StatusFailed, body, fmt.Errorf("persist outbound message: %w", err)
	}
	if err := d.conversations.RefreshSummary(ctx, conv.ID, conversation.Summary{
		Body:      body,
		At:        now,
		Direction: conversation.DirectionOutbound,
		Sender:    conversation.SenderAI,
	}); err != nil {
		d.logger.Warn("refresh summary after reply failed",
			slog.String("session_id", conv.ID),
			slog.String("error", err.Error()),
		)
	}
	return StatusSent, body, nil
}

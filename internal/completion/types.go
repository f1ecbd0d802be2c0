package completion

import (
	"context"
	"strings"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BlockText is the only block type whose content reaches the reply.
const BlockText = "text"

// Message is one turn of conversation history sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request asks the completion service for a reply.
type Request struct {
	System    string
	MaxTokens int
	Messages  []Message
}

// Block is one typed content block in a completion response.
type Block struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is the completion service's answer.
type Response struct {
	Blocks []Block
}

// Text concatenates the text-typed blocks with newlines. Non-text blocks
// are dropped.
func (r Response) Text() string {
	parts := make([]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		if b.Type != BlockText {
			continue
		}
		if text := strings.TrimSpace(b.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// Service is the black-box text completion provider.
type Service interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

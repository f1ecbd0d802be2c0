package gateway

import (
	"fmt"
	"strings"
	"time"
)

// Normalize turns a raw gateway payload into a canonical inbound message.
// Every payload produces some body string; there is no error path.
func Normalize(p InboundPayload) Inbound {
	ts := time.Now().UTC()
	if p.Timestamp > 0 {
		ts = time.Unix(p.Timestamp, 0).UTC()
	}
	return Inbound{
		From:        strings.TrimSpace(p.From),
		ChatID:      strings.TrimSpace(p.ChatID),
		DisplayName: strings.TrimSpace(p.PushName),
		Body:        extractBody(p),
		ExternalID:  strings.TrimSpace(p.MessageID),
		Timestamp:   ts,
	}
}

// extractBody applies the body policy in priority order: text body, media
// caption, synthesized placeholder.
func extractBody(p InboundPayload) string {
	if text := strings.TrimSpace(p.Text); text != "" {
		return text
	}
	kind := strings.ToLower(strings.TrimSpace(p.Type))
	switch kind {
	case "image", "video":
		if caption := strings.TrimSpace(p.Caption); caption != "" {
			return caption
		}
		return "[" + titleCase(kind) + "]"
	case "audio":
		return "[Audio]"
	case "document":
		if name := strings.TrimSpace(p.Filename); name != "" {
			return fmt.Sprintf("[Document: %s]", name)
		}
		return "[Document]"
	case "", "text", "chat":
		// A text payload with no text still yields a placeholder.
		return "[Text]"
	default:
		return fmt.Sprintf("[%s message]", kind)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

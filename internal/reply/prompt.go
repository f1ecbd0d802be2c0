package reply

import (
	"fmt"
	"strings"

	"github.com/inboxd/inboxd/internal/agentcfg"
	"github.com/inboxd/inboxd/internal/knowledge"
)

// PromptOptions are the channel-level overrides layered onto the profile.
type PromptOptions struct {
	GreetingOverride   string
	CustomInstructions string
}

const corePromptRules = `Core rules:
- Keep replies short and readable on a phone screen.
- Never volunteer that you are an AI.
- If you do not know something, say so instead of making it up.
- Never share information that is not in your knowledge.
- If the customer clearly needs a human, say politely that a team member will follow up.`

// BuildPrompt assembles the system prompt. It is a pure function and the
// section order is a contract: identity, style, rules, greeting, knowledge
// base, custom instructions, core rules. Empty sections are omitted.
func BuildPrompt(profile agentcfg.Profile, entries []knowledge.Entry, opts PromptOptions) string {
	sections := []string{
		identitySection(profile),
		styleSection(profile),
		rulesSection(profile),
		greetingSection(profile, opts.GreetingOverride),
		knowledgeSection(entries),
		customSection(opts.CustomInstructions),
		corePromptRules,
	}

	kept := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}

func identitySection(p agentcfg.Profile) string {
	name := strings.TrimSpace(p.BusinessName)
	var lines []string

	switch p.UseCase {
	case agentcfg.UseCaseBusiness:
		if name != "" {
			lines = append(lines, fmt.Sprintf("You are a customer service assistant for %s.", name))
		} else {
			lines = append(lines, "You are a customer service assistant for this business.")
		}
	case agentcfg.UseCasePersonal:
		if name != "" {
			lines = append(lines, fmt.Sprintf("You are a personal assistant replying to messages on behalf of %s.", name))
		} else {
			lines = append(lines, "You are a personal assistant replying to messages on behalf of the account owner.")
		}
	case agentcfg.UseCaseOrganization:
		if name != "" {
			lines = append(lines, fmt.Sprintf("You are an assistant representing %s, an organization.", name))
		} else {
			lines = append(lines, "You are an assistant representing this organization.")
		}
	default:
		lines = append(lines, "You are a helpful assistant replying to messages on behalf of the account owner.")
	}

	if desc := strings.TrimSpace(p.Description); desc != "" {
		lines = append(lines, fmt.Sprintf("About: %s", desc))
	}
	if audience := strings.TrimSpace(p.Audience); audience != "" {
		lines = append(lines, fmt.Sprintf("Typical audience: %s", audience))
	}
	return strings.Join(lines, "\n")
}

func styleSection(p agentcfg.Profile) string {
	var lines []string
	if tone := strings.TrimSpace(p.Tone); tone != "" {
		lines = append(lines, fmt.Sprintf("Keep a %s tone.", tone))
	}
	if length := strings.TrimSpace(p.Length); length != "" {
		lines = append(lines, fmt.Sprintf("Keep replies %s.", length))
	}
	if lang := strings.TrimSpace(p.Language); lang != "" {
		if lang == agentcfg.LanguageMatchCustomer {
			lines = append(lines, "Respond in the customer's language.")
		} else {
			lines = append(lines, fmt.Sprintf("Respond in %s.", lang))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "Communication style:\n" + strings.Join(lines, "\n")
}

func rulesSection(p agentcfg.Profile) string {
	rules := strings.TrimSpace(p.Rules)
	if rules == "" {
		return ""
	}
	return "Response rules:\n" + rules
}

func greetingSection(p agentcfg.Profile, override string) string {
	greeting := strings.TrimSpace(override)
	if greeting == "" {
		greeting = strings.TrimSpace(p.Greeting)
	}
	if greeting == "" {
		return ""
	}
	return fmt.Sprintf("When this is the customer's first message, greet them with: %s", greeting)
}

func knowledgeSection(entries []knowledge.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("## %s\n%s", strings.TrimSpace(e.Title), strings.TrimSpace(e.Content)))
	}
	return "Knowledge base:\n\n" + strings.Join(parts, "\n\n---\n\n")
}

func customSection(instructions string) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return ""
	}
	return "Additional instructions for this channel:\n" + instructions
}

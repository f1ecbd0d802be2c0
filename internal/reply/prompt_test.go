package reply

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inboxd/inboxd/internal/agentcfg"
	"github.com/inboxd/inboxd/internal/knowledge"
)

func fullProfile() agentcfg.Profile {
	return agentcfg.Profile{
		UseCase:      agentcfg.UseCaseBusiness,
		BusinessName: "Mandala Coffee",
		Description:  "Specialty coffee roaster",
		Audience:     "coffee lovers",
		Tone:         "friendly",
		Length:       "short",
		Language:     agentcfg.LanguageMatchCustomer,
		Rules:        "Never discuss competitor prices.",
		Greeting:     "Hi! Welcome to Mandala Coffee.",
	}
}

func TestBuildPromptGolden(t *testing.T) {
	t.Parallel()

	entries := []knowledge.Entry{
		{Title: "Opening hours", Content: "Mon-Fri 09:00-17:00"},
	}
	opts := PromptOptions{CustomInstructions: "Mention the loyalty program when relevant."}

	want := `You are a customer service assistant for Mandala Coffee.
About: Specialty coffee roaster
Typical audience: coffee lovers

Communication style:
Keep a friendly tone.
Keep replies short.
Respond in the customer's language.

Response rules:
Never discuss competitor prices.

When this is the customer's first message, greet them with: Hi! Welcome to Mandala Coffee.

Knowledge base:

## Opening hours
Mon-Fri 09:00-17:00

Additional instructions for this channel:
Mention the loyalty program when relevant.

` + corePromptRules

	got := BuildPrompt(fullProfile(), entries, opts)
	assert.Equal(t, want, got)
}

func TestBuildPromptDeterministic(t *testing.T) {
	t.Parallel()

	entries := []knowledge.Entry{
		{Title: "Returns", Content: "30 days with receipt."},
		{Title: "Shipping", Content: "Nationwide, 2-4 days."},
	}
	first := BuildPrompt(fullProfile(), entries, PromptOptions{})
	second := BuildPrompt(fullProfile(), entries, PromptOptions{})
	assert.Equal(t, first, second)
}

func TestBuildPromptEmptyProfile(t *testing.T) {
	t.Parallel()

	got := BuildPrompt(agentcfg.Profile{}, nil, PromptOptions{})
	want := "You are a helpful assistant replying to messages on behalf of the account owner.\n\n" + corePromptRules
	assert.Equal(t, want, got)
}

func TestBuildPromptGreetingOverrideWins(t *testing.T) {
	t.Parallel()

	profile := fullProfile()
	got := BuildPrompt(profile, nil, PromptOptions{GreetingOverride: "Howdy from the channel."})
	assert.Contains(t, got, "greet them with: Howdy from the channel.")
	assert.NotContains(t, got, profile.Greeting)
}

func TestBuildPromptKnowledgeAppendsSubsection(t *testing.T) {
	t.Parallel()

	one := []knowledge.Entry{{Title: "Returns", Content: "30 days with receipt."}}
	two := append(one, knowledge.Entry{Title: "Shipping", Content: "Nationwide, 2-4 days."})

	withOne := BuildPrompt(fullProfile(), one, PromptOptions{})
	withTwo := BuildPrompt(fullProfile(), two, PromptOptions{})

	assert.Equal(t, 0, strings.Count(withOne, "\n---\n"))
	assert.Equal(t, 1, strings.Count(withTwo, "\n---\n"))
	assert.Contains(t, withTwo, "## Returns")
	assert.Contains(t, withTwo, "## Shipping")

	// The sections before the knowledge block are untouched.
	head := strings.Split(withOne, "Knowledge base:")[0]
	assert.True(t, strings.HasPrefix(withTwo, head))
}

func TestBuildPromptCoreRulesAlwaysLast(t *testing.T) {
	t.Parallel()

	got := BuildPrompt(fullProfile(), nil, PromptOptions{CustomInstructions: "Be brief."})
	assert.True(t, strings.HasSuffix(got, corePromptRules))
}

func TestBuildPromptExplicitLanguage(t *testing.T) {
	t.Parallel()

	profile := fullProfile()
	profile.Language = "Indonesian"
	got := BuildPrompt(profile, nil, PromptOptions{})
	assert.Contains(t, got, "Respond in Indonesian.")
	assert.NotContains(t, got, "customer's language")
}

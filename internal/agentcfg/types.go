package agentcfg

import "github.com/inboxd/inboxd/internal/schedule"

// Schedule modes.
const (
	ScheduleAlwaysOn      = "always_on"
	ScheduleBusinessHours = "business_hours"
	ScheduleCustom        = "custom"
)

// Profile use cases.
const (
	UseCaseBusiness     = "business"
	UseCasePersonal     = "personal"
	UseCaseOrganization = "organization"
)

// LanguageMatchCustomer instructs the agent to mirror the contact's language.
const LanguageMatchCustomer = "match_customer"

// Profile holds the operator-authored agent persona. A referenced template's
// profile replaces the channel's own wholesale; there is no field merging.
type Profile struct {
	UseCase      string `json:"use_case"`
	BusinessName string `json:"business_name"`
	Description  string `json:"description"`
	Audience     string `json:"audience"`
	Tone         string `json:"tone"`
	Length       string `json:"length"`
	Language     string `json:"language"`
	Rules        string `json:"rules"`
	Greeting     string `json:"greeting"`
}

// Config is the per-channel agent configuration consumed by eligibility
// resolution. Profile is already template-resolved.
type Config struct {
	ChannelID           string
	IsEnabled           bool
	Profile             Profile
	MaxTokens           int
	ScheduleMode        string
	BusinessHours       schedule.Weekly
	CustomSchedule      schedule.Weekly
	OutsideHoursMessage string
	CustomInstructions  string
	GreetingOverride    string
	TemplateID          string
}

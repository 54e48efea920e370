package guardrails

import (
	"time"

	"github.com/Inovico-app/inovy-sub006/internal/detect"
)

// Scope identifies which level of the hierarchy a policy applies to.
type Scope string

const (
	ScopeDefault      Scope = "default"
	ScopeOrganization Scope = "organization"
	ScopeProject      Scope = "project"
)

// Action is what a guard does when it triggers.
type Action string

const (
	ActionBlock  Action = "block"
	ActionRedact Action = "redact"
	ActionWarn   Action = "warn"
)

// Direction marks whether a message is flowing toward the model or back to
// the user.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// ActionTaken records what actually happened to a message.
type ActionTaken string

const (
	ActionTakenBlocked  ActionTaken = "blocked"
	ActionTakenRedacted ActionTaken = "redacted"
	ActionTakenWarned   ActionTaken = "warned"
	ActionTakenPassed   ActionTaken = "passed"
)

// Severity grades a violation for triage and reporting.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Guard names, also used as violation types.
const (
	GuardPII           = "pii"
	GuardJailbreak     = "jailbreak"
	GuardToxicity      = "toxicity"
	GuardHallucination = "hallucination"
)

// DefaultToxicityThreshold is used when a policy leaves the toxicity
// threshold unset.
const DefaultToxicityThreshold = 0.7

// PIIGuardConfig configures the PII guard. Entity types on the allow list
// are tolerated and do not trigger the guard.
type PIIGuardConfig struct {
	Enabled         bool                `json:"enabled"`
	Action          Action              `json:"action"`
	EntityAllowList []detect.EntityType `json:"entityAllowList,omitempty"`
}

// JailbreakGuardConfig configures the jailbreak guard (binary signal).
type JailbreakGuardConfig struct {
	Enabled bool   `json:"enabled"`
	Action  Action `json:"action"`
}

// ToxicityGuardConfig configures the toxicity guard. A zero Threshold means
// DefaultToxicityThreshold.
type ToxicityGuardConfig struct {
	Enabled   bool    `json:"enabled"`
	Action    Action  `json:"action"`
	Threshold float64 `json:"threshold,omitempty"`
}

// HallucinationGuardConfig configures the hallucination guard. It only runs
// on output and is evaluated last because its verification call is the one
// guard allowed to add latency.
type HallucinationGuardConfig struct {
	Enabled bool   `json:"enabled"`
	Action  Action `json:"action"`
}

// Policy is the effective guardrail configuration for one (scope, scopeID)
// pair. Exactly one policy exists per pair; the default scope has an empty
// ScopeID and is seeded at store initialization so it always exists.
type Policy struct {
	Scope         Scope                    `json:"scope"`
	ScopeID       string                   `json:"scopeId,omitempty"`
	Enabled       bool                     `json:"enabled"`
	PII           PIIGuardConfig           `json:"pii"`
	Jailbreak     JailbreakGuardConfig     `json:"jailbreak"`
	Toxicity      ToxicityGuardConfig      `json:"toxicity"`
	Hallucination HallucinationGuardConfig `json:"hallucination"`
}

// DefaultPolicy is the seeded global fallback: redact PII, block jailbreaks
// and warn on toxicity. The hallucination guard is off until an
// organization opts in, since it costs an external call per output.
func DefaultPolicy() Policy {
	return Policy{
		Scope:     ScopeDefault,
		Enabled:   true,
		PII:       PIIGuardConfig{Enabled: true, Action: ActionRedact},
		Jailbreak: JailbreakGuardConfig{Enabled: true, Action: ActionBlock},
		Toxicity:  ToxicityGuardConfig{Enabled: true, Action: ActionWarn, Threshold: DefaultToxicityThreshold},
		Hallucination: HallucinationGuardConfig{
			Enabled: false,
			Action:  ActionWarn,
		},
	}
}

// Message is one chat turn to evaluate.
type Message struct {
	OrganizationID string    `json:"organizationId"`
	ProjectID      string    `json:"projectId,omitempty"`
	UserID         string    `json:"userId"`
	Direction      Direction `json:"direction"`
	Text           string    `json:"text"`
	// SourceContext is the retrieval context the hallucination guard
	// verifies an output against. Ignored for input messages.
	SourceContext string `json:"sourceContext,omitempty"`
}

// Violation is one append-only audit record. A message produces one record
// per triggered guard; records are never updated or deleted.
type Violation struct {
	ID             string      `db:"id" json:"id"`
	OrganizationID string      `db:"organization_id" json:"organizationId"`
	ProjectID      string      `db:"project_id" json:"projectId,omitempty"`
	UserID         string      `db:"user_id" json:"userId"`
	ViolationType  string      `db:"violation_type" json:"violationType"`
	Direction      Direction   `db:"direction" json:"direction"`
	ActionTaken    ActionTaken `db:"action_taken" json:"actionTaken"`
	Severity       Severity    `db:"severity" json:"severity"`
	GuardName      string      `db:"guard_name" json:"guardName"`
	Details        string      `db:"details" json:"details"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
}

// Decision is what the chat collaborator acts on: it must abort the turn
// when Allowed is false and substitute TransformedText when it differs from
// the original.
type Decision struct {
	Allowed         bool        `json:"allowed"`
	TransformedText string      `json:"transformedText"`
	Violations      []Violation `json:"violations"`
}

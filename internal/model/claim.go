package model

import "time"

// Claim represents a structured statement of an intended or completed code change
type Claim struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`                 // Sentence the claim was extracted from
	Domain     Domain    `json:"domain"`               // What area of the codebase the claim is about
	Action     Action    `json:"action"`               // What the author says they did
	Target     string    `json:"target,omitempty"`     // Free-text object of the action
	Confidence float64   `json:"confidence"`           // Extraction confidence (0..1)
	Strategy   string    `json:"strategy,omitempty"`   // Which extraction rule matched (e.g., "template:have-verb")
	SessionID  string    `json:"session_id,omitempty"` // Conversation the claim came from
	CreatedAt  time.Time `json:"created_at"`
}

// Domain classifies the area of code a claim talks about
type Domain string

const (
	DomainStyling   Domain = "styling"   // CSS, themes, layout, responsive design
	DomainScripting Domain = "scripting" // Application logic, functions, handlers
	DomainSecurity  Domain = "security"  // Auth, sanitization, secrets
	DomainTesting   Domain = "testing"   // Unit/integration tests, coverage
	DomainErrors    Domain = "errors"    // Error handling, retries, fallbacks
	DomainGeneric   Domain = "generic"   // Anything else
)

// Domains lists every known domain in detector priority order
var Domains = []Domain{DomainStyling, DomainScripting, DomainSecurity, DomainTesting, DomainErrors, DomainGeneric}

// Action is the verb class of a claim
type Action string

const (
	ActionAdd       Action = "add"
	ActionFix       Action = "fix"
	ActionImprove   Action = "improve"
	ActionUpdate    Action = "update"
	ActionRemove    Action = "remove"
	ActionConfigure Action = "configure"
)

// ClaimState tracks where a claim is in the correlation lifecycle
type ClaimState string

const (
	StatePending    ClaimState = "pending"
	StateScheduled  ClaimState = "scheduled"
	StateEvaluating ClaimState = "evaluating"
	StateResolved   ClaimState = "resolved"
	StateExpired    ClaimState = "expired"
)

// Terminal reports whether no further transition is possible
func (s ClaimState) Terminal() bool {
	return s == StateResolved || s == StateExpired
}

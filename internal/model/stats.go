package model

// Stats aggregates the accountability state exposed to dashboards and the CLI
type Stats struct {
	TotalClaims       int            `json:"total_claims"`
	TotalAnalyses     int            `json:"total_analyses"`
	PendingClaims     int            `json:"pending_claims"`
	ExpiredClaims     int            `json:"expired_claims"`
	SlopScore         float64        `json:"slop_score"`
	StatusBreakdown   map[Status]int `json:"status_breakdown"`
	DetectorBreakdown map[string]int `json:"detector_breakdown"`
	Signals           []Signal       `json:"signals,omitempty"` // Diagnostic signals with transparent data
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Formula and inputs
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalSlopScore     SignalType = "slop_score"     // Lie ratio over the trailing window
	SignalBacklog       SignalType = "backlog"        // Claims waiting for evaluation
	SignalExpiry        SignalType = "expiry"         // Claims that never saw correlated activity
	SignalUnknownVolume SignalType = "unknown_volume" // Verdicts that could not be decided
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

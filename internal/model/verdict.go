package model

import "time"

// Status is the terminal classification of a claim
type Status string

const (
	StatusVerified Status = "verified" // Changes back the claim
	StatusLie      Status = "lie"      // Nothing (or only placeholders) backs the claim
	StatusPartial  Status = "partial"  // In-domain changes exist but no signature matched
	StatusUnknown  Status = "unknown"  // No detector, detector failure, or expired claim
)

// Statuses lists every status in display order
var Statuses = []Status{StatusVerified, StatusPartial, StatusLie, StatusUnknown}

// ExpiredReason is the reason recorded for claims that never saw correlated activity
const ExpiredReason = "stale claim, no correlated activity"

// Verdict is the immutable analysis result for one claim
type Verdict struct {
	ID           string    `json:"id"`
	ClaimID      string    `json:"claim_id"`
	ClaimText    string    `json:"claim_text,omitempty"`
	Domain       Domain    `json:"domain,omitempty"`
	Status       Status    `json:"status"`
	Confidence   float64   `json:"confidence"`
	Reason       string    `json:"reason"`
	Evidence     []string  `json:"evidence,omitempty"`
	DetectorName string    `json:"detector"`
	Expired      bool      `json:"expired,omitempty"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// ClampConfidence forces a confidence into [0,1]
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

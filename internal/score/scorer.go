package score

import (
	"fmt"

	"github.com/ppiankov/slopwatch/internal/model"
)

// backlogWarning is the pending-claim count above which the backlog signal warns
const backlogWarning = 20

// Scorer calculates the slop score and generates signals
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// SlopScore is the share of analyzed verdicts classified as lie. Expired
// records are excluded from both sides; no analyses yields 0.
func (s *Scorer) SlopScore(verdicts []model.Verdict) float64 {
	lies, analyzed := 0, 0
	for _, v := range verdicts {
		if v.Expired {
			continue
		}
		analyzed++
		if v.Status == model.StatusLie {
			lies++
		}
	}
	if analyzed == 0 {
		return 0
	}
	return float64(lies) / float64(analyzed)
}

// Calculate aggregates verdicts into stats and generates diagnostic signals
func (s *Scorer) Calculate(verdicts []model.Verdict, totalClaims, pending int) model.Stats {
	stats := model.Stats{
		TotalClaims:       totalClaims,
		PendingClaims:     pending,
		StatusBreakdown:   make(map[model.Status]int),
		DetectorBreakdown: make(map[string]int),
	}

	for _, v := range verdicts {
		if v.Expired {
			stats.ExpiredClaims++
			continue
		}
		stats.TotalAnalyses++
		stats.StatusBreakdown[v.Status]++
		stats.DetectorBreakdown[v.DetectorName]++
	}

	// 1. Slop score
	var slopSignal model.Signal
	stats.SlopScore, slopSignal = s.slopSignal(stats)
	stats.Signals = append(stats.Signals, slopSignal)

	// 2. Backlog
	if pending > 0 {
		stats.Signals = append(stats.Signals, s.backlogSignal(pending))
	}

	// 3. Expiry
	if stats.ExpiredClaims > 0 {
		stats.Signals = append(stats.Signals, s.expirySignal(stats))
	}

	// 4. Undecidable verdicts
	if sig := s.unknownSignal(stats); sig.Type != "" {
		stats.Signals = append(stats.Signals, sig)
	}

	return stats
}

func (s *Scorer) slopSignal(stats model.Stats) (float64, model.Signal) {
	lies := stats.StatusBreakdown[model.StatusLie]
	if stats.TotalAnalyses == 0 {
		return 0, model.Signal{
			Type:        model.SignalSlopScore,
			Severity:    model.SeverityInfo,
			Description: "No claims analyzed",
			Data: map[string]interface{}{
				"lies":     0,
				"analyzed": 0,
			},
		}
	}

	score := float64(lies) / float64(stats.TotalAnalyses)

	severity := model.SeverityInfo
	if score >= 0.5 {
		severity = model.SeverityCritical
	} else if score >= 0.2 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalSlopScore,
		Severity:    severity,
		Description: fmt.Sprintf("Slop score: %.2f (%d of %d analyzed claims were lies)", score, lies, stats.TotalAnalyses),
		Data: map[string]interface{}{
			"lies":     lies,
			"analyzed": stats.TotalAnalyses,
			"score":    score,
			"formula":  "lies / analyzed (expired excluded)",
		},
	}
}

func (s *Scorer) backlogSignal(pending int) model.Signal {
	severity := model.SeverityInfo
	if pending > backlogWarning {
		severity = model.SeverityWarning
	}
	return model.Signal{
		Type:        model.SignalBacklog,
		Severity:    severity,
		Description: fmt.Sprintf("%d claim(s) awaiting evaluation", pending),
		Data: map[string]interface{}{
			"pending":   pending,
			"threshold": backlogWarning,
		},
	}
}

func (s *Scorer) expirySignal(stats model.Stats) model.Signal {
	total := stats.ExpiredClaims + stats.TotalAnalyses
	ratio := float64(stats.ExpiredClaims) / float64(total)

	severity := model.SeverityInfo
	if ratio >= 0.5 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalExpiry,
		Severity:    severity,
		Description: fmt.Sprintf("%d claim(s) expired without correlated activity", stats.ExpiredClaims),
		Data: map[string]interface{}{
			"expired": stats.ExpiredClaims,
			"total":   total,
			"ratio":   ratio,
			"formula": "expired / (expired + analyzed)",
		},
	}
}

// unknownSignal flags a high share of verdicts no detector could decide
func (s *Scorer) unknownSignal(stats model.Stats) model.Signal {
	unknown := stats.StatusBreakdown[model.StatusUnknown]
	if unknown == 0 {
		return model.Signal{}
	}

	ratio := float64(unknown) / float64(stats.TotalAnalyses)
	severity := model.SeverityInfo
	if ratio >= 0.25 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalUnknownVolume,
		Severity:    severity,
		Description: fmt.Sprintf("%d verdict(s) undecided (no detector, timeout or failure)", unknown),
		Data: map[string]interface{}{
			"unknown":  unknown,
			"analyzed": stats.TotalAnalyses,
			"ratio":    ratio,
			"formula":  "unknown / analyzed",
		},
	}
}

package service

import (
	"fmt"
	"math"
	"strings"

	"compliance-rag/internal/models"
)

// DetectMinimumWageViolations is the rule-based stand-in for a baseline model
// run. It only checks hourly-equivalent pay against the jurisdiction floor.
// Workers without a positive rate, without a known jurisdiction, or paid in a
// currency other than the jurisdiction's are skipped rather than guessed at.
func DetectMinimumWageViolations(workers []models.WorkerRecord, rules *RuleTable) []models.Violation {
	violations := make([]models.Violation, 0)
	for i := range workers {
		w := &workers[i]
		if w.Compensation.Rate <= 0 {
			continue
		}

		rule, ok := rules.Lookup(w.Location.Country, w.Location.State)
		if !ok {
			continue
		}
		if w.Compensation.Currency != "" && !strings.EqualFold(w.Compensation.Currency, rule.Currency) {
			continue
		}

		hourly := w.HourlyRate()
		if hourly >= rule.MinimumHourlyWage {
			continue
		}

		current := round2(hourly)
		required := rule.MinimumHourlyWage
		jurisdiction := Jurisdiction(w.Location.Country, w.Location.State)

		violations = append(violations, models.Violation{
			WorkerID:      w.ID,
			WorkerName:    w.Name,
			ViolationType: models.ViolationMinimumWage,
			Severity:      models.SeverityHigh,
			Title:         "Pay below minimum wage",
			Description: fmt.Sprintf("Estimated hourly rate %.2f %s is below the %s minimum of %.2f %s.",
				current, rule.Currency, rule.Name, required, rule.Currency),
			Jurisdiction: jurisdiction,
			CurrentRate:  &current,
			RequiredRate: &required,
			RecommendedActions: []string{
				fmt.Sprintf("Raise pay to at least %.2f %s per hour", required, rule.Currency),
				"Review back pay owed for the affected period",
			},
		})
	}
	return violations
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package analytics

import (
	"slices"

	"olist-dashboard/internal/models"
)

// TopRulesLimit bounds the top-rules bar chart.
const TopRulesLimit = 10

// TopRulesByLift returns the strongest associations, lift descending.
// Ties keep input order.
func TopRulesByLift(rules []models.Rule, limit int) []models.Rule {
	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b models.Rule) int {
		switch {
		case a.Lift > b.Lift:
			return -1
		case a.Lift < b.Lift:
			return 1
		default:
			return 0
		}
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// SummarizeRules builds the rules-page KPIs. AvgLift is the mean lift
// of the filtered rules, 0 when none pass the thresholds.
func SummarizeRules(total int, filtered []models.Rule) models.RuleSummary {
	summary := models.RuleSummary{
		TotalRules:    total,
		FilteredRules: len(filtered),
	}

	if len(filtered) == 0 {
		return summary
	}

	var liftSum float64
	for _, r := range filtered {
		liftSum += r.Lift
	}
	summary.AvgLift = liftSum / float64(len(filtered))
	return summary
}

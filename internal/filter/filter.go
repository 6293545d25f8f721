// Package filter turns the dashboard's widget selections into a filtered
// view of the loaded dataset. Each constrained field contributes one
// predicate; predicates are AND-combined, values within a field are
// OR-combined.
//
// Policy: an empty inclusion list means "no constraint on this field",
// for every list field. The date range is the one exception to
// pass-if-empty in the other direction: it applies whenever a bound is
// set, both bounds inclusive.
package filter

import (
	"slices"
	"time"

	"olist-dashboard/internal/dataset"
	"olist-dashboard/internal/models"
)

// Selection carries the per-field constraints read from the widgets.
// The zero value selects everything.
type Selection struct {
	Years      []int
	Months     []int
	Periods    []string
	States     []string
	Categories []string
	DateFrom   *time.Time
	DateTo     *time.Time
}

// RuleSelection filters association rules. The thresholds are always
// applied; both comparisons are inclusive.
type RuleSelection struct {
	MinLift       float64
	MinConfidence float64
}

// View is a read-only filtered subset of the dataset. The underlying
// dataset is never mutated; a view is recomputed whenever the selection
// changes.
type View struct {
	Orders []models.Order
}

func (v View) Empty() bool {
	return len(v.Orders) == 0
}

func (v View) Len() int {
	return len(v.Orders)
}

// predicate is one per-field constraint. Keeping the rule list explicit
// per field keeps the pass-if-empty behavior auditable field by field.
type predicate func(models.Order) bool

func buildPredicates(sel Selection) []predicate {
	var rules []predicate

	if len(sel.Years) > 0 {
		years := intSet(sel.Years)
		rules = append(rules, func(o models.Order) bool { return years[o.Year] })
	}
	if len(sel.Months) > 0 {
		months := intSet(sel.Months)
		rules = append(rules, func(o models.Order) bool { return months[o.Month] })
	}
	if len(sel.Periods) > 0 {
		periods := stringSet(sel.Periods)
		rules = append(rules, func(o models.Order) bool { return periods[o.Period] })
	}
	if len(sel.States) > 0 {
		states := stringSet(sel.States)
		rules = append(rules, func(o models.Order) bool { return states[o.State] })
	}
	if len(sel.Categories) > 0 {
		categories := stringSet(sel.Categories)
		rules = append(rules, func(o models.Order) bool { return categories[o.Category] })
	}
	if sel.DateFrom != nil {
		from := *sel.DateFrom
		rules = append(rules, func(o models.Order) bool { return !o.PurchaseDate.Before(from) })
	}
	if sel.DateTo != nil {
		to := *sel.DateTo
		rules = append(rules, func(o models.Order) bool { return !o.PurchaseDate.After(to) })
	}

	return rules
}

// Apply returns the rows matching every constrained field. An empty
// result is a valid view; the caller decides whether to short-circuit.
func Apply(ds *dataset.Dataset, sel Selection) View {
	rules := buildPredicates(sel)
	if len(rules) == 0 {
		return View{Orders: ds.Orders}
	}

	matched := make([]models.Order, 0, len(ds.Orders))
	for _, order := range ds.Orders {
		if matchesAll(order, rules) {
			matched = append(matched, order)
		}
	}
	return View{Orders: matched}
}

func matchesAll(order models.Order, rules []predicate) bool {
	for _, rule := range rules {
		if !rule(order) {
			return false
		}
	}
	return true
}

// ApplyRules keeps rules at or above both thresholds.
func ApplyRules(rs *dataset.RuleSet, sel RuleSelection) []models.Rule {
	matched := make([]models.Rule, 0, len(rs.Rules))
	for _, rule := range rs.Rules {
		if rule.Lift >= sel.MinLift && rule.Confidence >= sel.MinConfidence {
			matched = append(matched, rule)
		}
	}
	return matched
}

// Options lists the distinct values of every filterable field, sorted,
// for populating the dashboard widgets.
func Options(ds *dataset.Dataset) models.FilterOptions {
	var (
		years      = map[int]bool{}
		months     = map[int]bool{}
		periods    = map[string]bool{}
		states     = map[string]bool{}
		categories = map[string]bool{}
	)

	for _, o := range ds.Orders {
		years[o.Year] = true
		months[o.Month] = true
		periods[o.Period] = true
		if o.State != "" {
			states[o.State] = true
		}
		if o.Category != "" {
			categories[o.Category] = true
		}
	}

	opts := models.FilterOptions{
		Years:      sortedIntKeys(years),
		Months:     sortedIntKeys(months),
		Periods:    sortedStringKeys(periods),
		States:     sortedStringKeys(states),
		Categories: sortedStringKeys(categories),
	}
	return opts
}

func intSet(values []int) map[int]bool {
	set := make(map[int]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func sortedIntKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedStringKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

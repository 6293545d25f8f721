package filter

import (
	"fmt"
	"testing"
	"time"

	"olist-dashboard/internal/dataset"
	"olist-dashboard/internal/models"
)

func makeOrder(id, state, category string, year, month int, price, freight float64) models.Order {
	o := models.Order{
		OrderID:      id,
		State:        state,
		Category:     category,
		Year:         year,
		Month:        month,
		Price:        price,
		FreightValue: freight,
		PurchaseDate: time.Date(year, time.Month(month), 15, 0, 0, 0, 0, time.UTC),
	}
	o.Revenue = price + freight
	o.Period = fmt.Sprintf("%02d/%04d", month, year)
	if price > 0 {
		o.FreightRatio = freight / price
		o.HasFreightRatio = true
	}
	return o
}

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Orders: []models.Order{
			makeOrder("o1", "SP", "toys", 2023, 1, 100, 10),
			makeOrder("o1", "SP", "toys", 2023, 1, 50, 5),
			makeOrder("o2", "RJ", "books", 2023, 2, 20, 2),
			makeOrder("o3", "MG", "auto", 2022, 12, 80, 8),
		},
	}
}

func TestApply_EmptySelectionPassesEverything(t *testing.T) {
	ds := testDataset()

	view := Apply(ds, Selection{})
	if view.Len() != len(ds.Orders) {
		t.Errorf("empty selection kept %d of %d rows", view.Len(), len(ds.Orders))
	}
}

// Every list field follows the same policy: an empty inclusion list is
// no constraint at all.
func TestApply_PassIfEmptyPerField(t *testing.T) {
	ds := testDataset()

	tests := []struct {
		name string
		sel  Selection
	}{
		{name: "years", sel: Selection{Years: []int{}}},
		{name: "months", sel: Selection{Months: []int{}}},
		{name: "periods", sel: Selection{Periods: []string{}}},
		{name: "states", sel: Selection{States: []string{}}},
		{name: "categories", sel: Selection{Categories: []string{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := Apply(ds, tt.sel)
			if view.Len() != len(ds.Orders) {
				t.Errorf("empty %s list filtered rows: kept %d of %d", tt.name, view.Len(), len(ds.Orders))
			}
		})
	}
}

func TestApply_ByField(t *testing.T) {
	ds := testDataset()

	tests := []struct {
		name     string
		sel      Selection
		wantRows int
	}{
		{name: "state", sel: Selection{States: []string{"SP"}}, wantRows: 2},
		{name: "two states", sel: Selection{States: []string{"SP", "RJ"}}, wantRows: 3},
		{name: "category", sel: Selection{Categories: []string{"books"}}, wantRows: 1},
		{name: "year", sel: Selection{Years: []int{2022}}, wantRows: 1},
		{name: "month", sel: Selection{Months: []int{1}}, wantRows: 2},
		{name: "period", sel: Selection{Periods: []string{"12/2022"}}, wantRows: 1},
		{name: "state and category", sel: Selection{States: []string{"SP"}, Categories: []string{"books"}}, wantRows: 0},
		{name: "no match", sel: Selection{States: []string{"AM"}}, wantRows: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := Apply(ds, tt.sel)
			if view.Len() != tt.wantRows {
				t.Errorf("kept %d rows, want %d", view.Len(), tt.wantRows)
			}
		})
	}
}

func TestApply_DateRangeInclusive(t *testing.T) {
	ds := testDataset()

	// All 2023-01 rows sit on the 15th; both bounds are inclusive.
	from := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

	view := Apply(ds, Selection{DateFrom: &from, DateTo: &to})
	if view.Len() != 2 {
		t.Errorf("inclusive bounds kept %d rows, want 2", view.Len())
	}

	// A range ending just before excludes them.
	before := time.Date(2023, 1, 14, 0, 0, 0, 0, time.UTC)
	view = Apply(ds, Selection{DateFrom: &from, DateTo: &before})
	if view.Len() != 0 {
		t.Errorf("empty range kept %d rows", view.Len())
	}
}

func TestApply_NeverMutatesDataset(t *testing.T) {
	ds := testDataset()
	before := len(ds.Orders)

	_ = Apply(ds, Selection{States: []string{"SP"}})
	if len(ds.Orders) != before {
		t.Error("Apply() must not mutate the source dataset")
	}
}

func TestApply_EmptyResultIsAView(t *testing.T) {
	view := Apply(testDataset(), Selection{States: []string{"ZZ"}})
	if !view.Empty() {
		t.Error("expected an empty view")
	}
}

func TestApplyRules_InclusiveThresholds(t *testing.T) {
	rs := &dataset.RuleSet{
		Rules: []models.Rule{
			{Antecedent: "a", Lift: 1.5, Confidence: 0.3},
			{Antecedent: "b", Lift: 1.49, Confidence: 0.9},
			{Antecedent: "c", Lift: 2.0, Confidence: 0.29},
		},
	}

	matched := ApplyRules(rs, RuleSelection{MinLift: 1.5, MinConfidence: 0.3})
	if len(matched) != 1 || matched[0].Antecedent != "a" {
		t.Errorf("expected only rule a at the inclusive boundary, got %+v", matched)
	}

	// Zero thresholds pass everything.
	if got := len(ApplyRules(rs, RuleSelection{})); got != 3 {
		t.Errorf("zero thresholds kept %d of 3 rules", got)
	}
}

func TestOptions(t *testing.T) {
	opts := Options(testDataset())

	wantStates := []string{"MG", "RJ", "SP"}
	if len(opts.States) != len(wantStates) {
		t.Fatalf("states = %v, want %v", opts.States, wantStates)
	}
	for i, s := range wantStates {
		if opts.States[i] != s {
			t.Errorf("states[%d] = %q, want %q", i, opts.States[i], s)
		}
	}

	if len(opts.Years) != 2 || opts.Years[0] != 2022 || opts.Years[1] != 2023 {
		t.Errorf("years = %v, want [2022 2023]", opts.Years)
	}
	if len(opts.Periods) != 3 {
		t.Errorf("periods = %v, want 3 distinct", opts.Periods)
	}
}

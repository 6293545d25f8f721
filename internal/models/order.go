package models

import "time"

// Order is one delivered order line item. An order id is not unique per
// row: multi-item orders contribute one row per line item.
type Order struct {
	OrderID      string
	PurchaseDate time.Time
	Year         int
	Month        int
	State        string
	Category     string
	Price        float64
	FreightValue float64
	ReviewScore  int // 0 means missing

	// Derived at load time, immutable afterwards.
	Revenue         float64
	Period          string // "MM/YYYY"
	FreightRatio    float64
	HasFreightRatio bool
}

// Rule is one pre-mined association rule between product categories.
type Rule struct {
	Antecedent string  `json:"antecedent"`
	Consequent string  `json:"consequent"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
}

type Summary struct {
	TotalRevenue   float64 `json:"total_revenue"`
	RowCount       int     `json:"row_count"`
	DistinctOrders int     `json:"distinct_orders"`
	AvgOrderValue  float64 `json:"avg_order_value"`
	AvgRating      float64 `json:"avg_rating"`
	HasRating      bool    `json:"has_rating"`
}

type PeriodSales struct {
	Period  string  `json:"period"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

type StateRevenue struct {
	State   string  `json:"state"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

type CategoryRevenue struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
	Orders   int     `json:"orders"`
}

type CategoryQuality struct {
	Category  string  `json:"category"`
	Revenue   float64 `json:"revenue"`
	AvgRating float64 `json:"avg_rating"`
	Orders    int     `json:"orders"`
}

type FreightPoint struct {
	Price        float64 `json:"price"`
	FreightRatio float64 `json:"freight_ratio"`
}

type FreightStats struct {
	MeanRatio  float64        `json:"mean_ratio"`
	Population int            `json:"population"`
	Sample     []FreightPoint `json:"sample"`
}

type RuleSummary struct {
	TotalRules    int     `json:"total_rules"`
	FilteredRules int     `json:"filtered_rules"`
	AvgLift       float64 `json:"avg_lift"`
}

// FilterOptions holds the distinct values the dashboard widgets offer.
type FilterOptions struct {
	Years      []int    `json:"years"`
	Months     []int    `json:"months"`
	Periods    []string `json:"periods"`
	States     []string `json:"states"`
	Categories []string `json:"categories"`
}

package analytics

import (
	"math/rand"
	"slices"
	"strconv"
	"strings"

	apperrors "olist-dashboard/internal/errors"
	"olist-dashboard/internal/filter"
	"olist-dashboard/internal/models"
)

const (
	// TopCategoriesLimit bounds the category revenue chart.
	TopCategoriesLimit = 10

	// qualityMinOrders is the stability threshold for the category
	// quality chart: groups with fewer distinct orders are too noisy
	// for a mean rating to mean anything.
	qualityMinOrders = 10

	// FreightSampleSize caps the scatter plot population. The sample is
	// drawn with a fixed seed so repeated renders show the same points.
	FreightSampleSize = 3000
	freightSampleSeed = 42
)

// Summarize computes the headline KPIs over a filtered view.
//
// RowCount counts line items, not orders: a two-item order contributes
// two rows here but one order to DistinctOrders and to the period
// series. Both denominators are deliberate and must stay distinct.
func Summarize(view filter.View) models.Summary {
	s := models.Summary{RowCount: view.Len()}

	seen := make(map[string]struct{})
	ratingSum, ratingCount := 0, 0

	for _, o := range view.Orders {
		s.TotalRevenue += o.Revenue
		seen[o.OrderID] = struct{}{}
		if o.ReviewScore > 0 {
			ratingSum += o.ReviewScore
			ratingCount++
		}
	}

	s.DistinctOrders = len(seen)
	if s.RowCount > 0 {
		s.AvgOrderValue = s.TotalRevenue / float64(s.RowCount)
	}
	if ratingCount > 0 {
		s.AvgRating = float64(ratingSum) / float64(ratingCount)
		s.HasRating = true
	}
	return s
}

// SalesByPeriod groups by the "MM/YYYY" period key, summing revenue and
// counting distinct orders. Ordering is chronological: the key is parsed
// back into (year, month), since the string form does not sort.
func SalesByPeriod(view filter.View) []models.PeriodSales {
	type periodGroup struct {
		revenue float64
		orders  map[string]struct{}
	}

	groups := make(map[string]*periodGroup)
	keys := make([]string, 0)

	for _, o := range view.Orders {
		g, ok := groups[o.Period]
		if !ok {
			g = &periodGroup{orders: make(map[string]struct{})}
			groups[o.Period] = g
			keys = append(keys, o.Period)
		}
		g.revenue += o.Revenue
		g.orders[o.OrderID] = struct{}{}
	}

	result := make([]models.PeriodSales, 0, len(keys))
	for _, key := range keys {
		result = append(result, models.PeriodSales{
			Period:  key,
			Revenue: groups[key].revenue,
			Orders:  len(groups[key].orders),
		})
	}

	slices.SortFunc(result, func(a, b models.PeriodSales) int {
		return periodOrder(a.Period) - periodOrder(b.Period)
	})
	return result
}

// periodOrder converts "MM/YYYY" to a sortable int (YYYYMM).
func periodOrder(period string) int {
	parts := strings.SplitN(period, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	month, err1 := strconv.Atoi(parts[0])
	year, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0
	}
	return year*100 + month
}

// RevenueByState groups by customer state, revenue descending.
func RevenueByState(view filter.View) []models.StateRevenue {
	groups, keys := groupOrders(view, func(o models.Order) string { return o.State })

	result := make([]models.StateRevenue, 0, len(keys))
	for _, key := range keys {
		result = append(result, models.StateRevenue{
			State:   key,
			Revenue: groups[key].revenue,
			Orders:  len(groups[key].orders),
		})
	}

	slices.SortStableFunc(result, byRevenueDesc[models.StateRevenue](func(r models.StateRevenue) float64 { return r.Revenue }))
	return result
}

// TopCategories returns the top categories by revenue. The sort is
// stable so revenue ties keep their first-seen input order.
func TopCategories(view filter.View, limit int) []models.CategoryRevenue {
	groups, keys := groupOrders(view, func(o models.Order) string { return o.Category })

	result := make([]models.CategoryRevenue, 0, len(keys))
	for _, key := range keys {
		result = append(result, models.CategoryRevenue{
			Category: key,
			Revenue:  groups[key].revenue,
			Orders:   len(groups[key].orders),
		})
	}

	slices.SortStableFunc(result, byRevenueDesc[models.CategoryRevenue](func(r models.CategoryRevenue) float64 { return r.Revenue }))
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// CategoryQuality reports revenue, mean review score and distinct order
// count per category, dropping categories below the stability threshold.
// When every group falls below it, the caller gets a distinct
// "insufficient data" signal rather than a silently empty table.
func CategoryQuality(view filter.View) ([]models.CategoryQuality, error) {
	type qualityGroup struct {
		revenue     float64
		ratingSum   int
		ratingCount int
		orders      map[string]struct{}
	}

	groups := make(map[string]*qualityGroup)
	keys := make([]string, 0)

	for _, o := range view.Orders {
		g, ok := groups[o.Category]
		if !ok {
			g = &qualityGroup{orders: make(map[string]struct{})}
			groups[o.Category] = g
			keys = append(keys, o.Category)
		}
		g.revenue += o.Revenue
		g.orders[o.OrderID] = struct{}{}
		if o.ReviewScore > 0 {
			g.ratingSum += o.ReviewScore
			g.ratingCount++
		}
	}

	result := make([]models.CategoryQuality, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		if len(g.orders) < qualityMinOrders {
			continue
		}
		row := models.CategoryQuality{
			Category: key,
			Revenue:  g.revenue,
			Orders:   len(g.orders),
		}
		if g.ratingCount > 0 {
			row.AvgRating = float64(g.ratingSum) / float64(g.ratingCount)
		}
		result = append(result, row)
	}

	if len(result) == 0 {
		return nil, apperrors.InsufficientData("no category reaches the minimum order count for quality analysis")
	}

	slices.SortStableFunc(result, byRevenueDesc[models.CategoryQuality](func(r models.CategoryQuality) float64 { return r.Revenue }))
	return result, nil
}

// FreightAnalysis restricts to rows with a defined freight ratio
// (price > 0) and reports the mean ratio over that full population. The
// scatter sample is capped separately; sampling never touches the
// reported mean.
func FreightAnalysis(view filter.View, sampleSize int) models.FreightStats {
	population := make([]models.FreightPoint, 0, view.Len())
	var ratioSum float64

	for _, o := range view.Orders {
		if !o.HasFreightRatio {
			continue
		}
		population = append(population, models.FreightPoint{
			Price:        o.Price,
			FreightRatio: o.FreightRatio,
		})
		ratioSum += o.FreightRatio
	}

	stats := models.FreightStats{Population: len(population)}
	if len(population) == 0 {
		stats.Sample = []models.FreightPoint{}
		return stats
	}
	stats.MeanRatio = ratioSum / float64(len(population))

	if sampleSize <= 0 || len(population) <= sampleSize {
		stats.Sample = population
		return stats
	}

	rng := rand.New(rand.NewSource(freightSampleSeed))
	picked := rng.Perm(len(population))[:sampleSize]
	slices.Sort(picked)

	sample := make([]models.FreightPoint, 0, sampleSize)
	for _, i := range picked {
		sample = append(sample, population[i])
	}
	stats.Sample = sample
	return stats
}

type revenueGroup struct {
	revenue float64
	orders  map[string]struct{}
}

// groupOrders buckets rows by key, tracking first-seen key order so
// downstream stable sorts tie-break deterministically.
func groupOrders(view filter.View, keyOf func(models.Order) string) (map[string]*revenueGroup, []string) {
	groups := make(map[string]*revenueGroup)
	keys := make([]string, 0)

	for _, o := range view.Orders {
		key := keyOf(o)
		g, ok := groups[key]
		if !ok {
			g = &revenueGroup{orders: make(map[string]struct{})}
			groups[key] = g
			keys = append(keys, key)
		}
		g.revenue += o.Revenue
		g.orders[o.OrderID] = struct{}{}
	}
	return groups, keys
}

func byRevenueDesc[T any](revenue func(T) float64) func(a, b T) int {
	return func(a, b T) int {
		switch {
		case revenue(a) > revenue(b):
			return -1
		case revenue(a) < revenue(b):
			return 1
		default:
			return 0
		}
	}
}

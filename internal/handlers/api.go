package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"olist-dashboard/internal/analytics"
	"olist-dashboard/internal/errors"
	"olist-dashboard/internal/filter"
	"olist-dashboard/internal/observability"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics *analytics.Service
	logger    *slog.Logger
}

func NewAPIHandlers(service *analytics.Service, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: service,
		logger:    logger,
	}
}

// parseSelection reads the widget state from the query string. List
// params repeat (state=SP&state=RJ); absent params leave the field
// unconstrained.
func parseSelection(r *http.Request) (filter.Selection, error) {
	q := r.URL.Query()
	sel := filter.Selection{
		Periods:    q["period"],
		States:     q["state"],
		Categories: q["category"],
	}

	for _, raw := range q["year"] {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return sel, errors.BadRequest(fmt.Sprintf("invalid year %q", raw))
		}
		sel.Years = append(sel.Years, year)
	}

	for _, raw := range q["month"] {
		month, err := strconv.Atoi(raw)
		if err != nil || month < 1 || month > 12 {
			return sel, errors.BadRequest(fmt.Sprintf("invalid month %q", raw))
		}
		sel.Months = append(sel.Months, month)
	}

	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return sel, errors.BadRequest(fmt.Sprintf("invalid from date %q, want YYYY-MM-DD", raw))
		}
		sel.DateFrom = &from
	}

	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return sel, errors.BadRequest(fmt.Sprintf("invalid to date %q, want YYYY-MM-DD", raw))
		}
		// Inclusive upper bound: cover the whole day.
		to = to.Add(24*time.Hour - time.Nanosecond)
		sel.DateTo = &to
	}

	return sel, nil
}

func parseRuleSelection(r *http.Request) (filter.RuleSelection, error) {
	q := r.URL.Query()
	sel := filter.RuleSelection{}

	if raw := q.Get("min_lift"); raw != "" {
		lift, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return sel, errors.BadRequest(fmt.Sprintf("invalid min_lift %q", raw))
		}
		sel.MinLift = lift
	}

	if raw := q.Get("min_confidence"); raw != "" {
		confidence, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return sel, errors.BadRequest(fmt.Sprintf("invalid min_confidence %q", raw))
		}
		sel.MinConfidence = confidence
	}

	return sel, nil
}

// filteredView runs the selection through the filter engine and maps an
// empty result to the EMPTY_FILTER_RESULT notice, so no aggregation ever
// sees zero rows from a handler.
func (h *APIHandlers) filteredView(r *http.Request) (filter.View, error) {
	sel, err := parseSelection(r)
	if err != nil {
		return filter.View{}, err
	}

	_, span := observability.StartSpan(r.Context(), "pipeline.filter")
	view, err := h.analytics.Filter(sel)
	span.SetError(err)
	span.Finish()
	if err != nil {
		return filter.View{}, err
	}

	if view.Empty() {
		return filter.View{}, errors.EmptyFilter("no orders match the current filters")
	}
	return view, nil
}

func (h *APIHandlers) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}
	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	view, err := h.filteredView(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	h.respond(w, r, analytics.Summarize(view), nil)
}

func (h *APIHandlers) HandleSalesByPeriod(w http.ResponseWriter, r *http.Request) {
	view, err := h.filteredView(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	h.respond(w, r, analytics.SalesByPeriod(view), nil)
}

func (h *APIHandlers) HandleRevenueByState(w http.ResponseWriter, r *http.Request) {
	view, err := h.filteredView(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	h.respond(w, r, analytics.RevenueByState(view), nil)
}

func (h *APIHandlers) HandleTopCategories(w http.ResponseWriter, r *http.Request) {
	view, err := h.filteredView(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	h.respond(w, r, analytics.TopCategories(view, analytics.TopCategoriesLimit), nil)
}

func (h *APIHandlers) HandleCategoryQuality(w http.ResponseWriter, r *http.Request) {
	view, err := h.filteredView(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}

	quality, err := analytics.CategoryQuality(view)
	h.respond(w, r, quality, err)
}

func (h *APIHandlers) HandleFreight(w http.ResponseWriter, r *http.Request) {
	view, err := h.filteredView(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	h.respond(w, r, analytics.FreightAnalysis(view, analytics.FreightSampleSize), nil)
}

func (h *APIHandlers) HandleFilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.analytics.FilterOptions()
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	h.respond(w, r, opts, nil)
}

// HandleRules serves the association-rules page in one payload: KPIs,
// the top-rules chart and the full filtered table.
func (h *APIHandlers) HandleRules(w http.ResponseWriter, r *http.Request) {
	sel, err := parseRuleSelection(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}

	filtered, total, err := h.analytics.FilterRules(sel)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}

	h.respond(w, r, map[string]any{
		"summary":   analytics.SummarizeRules(total, filtered),
		"top_rules": analytics.TopRulesByLift(filtered, analytics.TopRulesLimit),
		"rules":     filtered,
	}, nil)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}

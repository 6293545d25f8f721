package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"olist-dashboard/internal/analytics"
	apperrors "olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
)

var kpiTemplate = template.Must(template.New("kpis").Parse(`
<div id="kpi-content">
<div class="kpi-grid">
<div class="kpi"><span class="kpi-label">Total Revenue</span><strong>${{printf "%.2f" .TotalRevenue}}</strong></div>
<div class="kpi"><span class="kpi-label">Line Items</span><strong>{{.RowCount}}</strong></div>
<div class="kpi"><span class="kpi-label">Orders</span><strong>{{.DistinctOrders}}</strong></div>
<div class="kpi"><span class="kpi-label">Avg Order Value</span><strong>${{printf "%.2f" .AvgOrderValue}}</strong></div>
{{if .HasRating}}<div class="kpi"><span class="kpi-label">Avg Rating</span><strong>{{printf "%.2f" .AvgRating}} / 5</strong></div>{{end}}
</div>
</div>`))

const (
	emptyNotice        = `<div id="kpi-content"><div class="notice">No orders match the current filters. Loosen a filter to see data.</div></div>`
	insufficientNotice = `<div id="quality-content"><div class="notice">Not enough orders per category for quality analysis (minimum 10).</div></div>`
	qualityLoaded      = `<div id="quality-content">Category quality data loaded</div>`
)

type SSEHandlers struct {
	analytics *analytics.Service
	logger    *slog.Logger
}

func NewSSEHandlers(service *analytics.Service, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: service,
		logger:    logger,
	}
}

func renderKPIs(summary models.Summary) (string, error) {
	var buf strings.Builder
	err := kpiTemplate.Execute(&buf, summary)
	return buf.String(), err
}

// HandleRefresh re-renders the whole dashboard for the selection in the
// query string: the KPI fragment as HTML, the charts as signals.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	sel, err := parseSelection(r)
	if err != nil {
		h.logger.Warn("bad filter selection", "error", err)
		sse.PatchElements(emptyNotice)
		return
	}

	view, err := h.analytics.Filter(sel)
	if err != nil {
		h.logger.Error("filter orders", "error", err)
		sse.PatchElements(`<div id="kpi-content"><div class="notice">Order data is unavailable. Run the upstream analysis first.</div></div>`)
		return
	}

	// Empty result short-circuits here, before any aggregation runs.
	if view.Empty() {
		sse.PatchElements(emptyNotice)
		flush(w)
		return
	}

	html, err := renderKPIs(analytics.Summarize(view))
	if err != nil {
		h.logger.Error("render kpis", "error", err)
		return
	}
	sse.PatchElements(html)

	signals := map[string]any{
		"periodData":   analytics.SalesByPeriod(view),
		"stateData":    analytics.RevenueByState(view),
		"categoryData": analytics.TopCategories(view, analytics.TopCategoriesLimit),
		"freightData":  analytics.FreightAnalysis(view, analytics.FreightSampleSize),
	}

	quality, err := analytics.CategoryQuality(view)
	switch {
	case apperrors.IsInsufficientData(err):
		sse.PatchElements(insufficientNotice)
	case err != nil:
		h.logger.Error("category quality", "error", err)
	default:
		signals["qualityData"] = quality
		sse.PatchElements(qualityLoaded)
	}

	payload, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err)
		return
	}
	sse.PatchSignals(payload)

	flush(w)
}

// HandleRulesRefresh drives the association-rules page.
func (h *SSEHandlers) HandleRulesRefresh(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	sel, err := parseRuleSelection(r)
	if err != nil {
		h.logger.Warn("bad rule selection", "error", err)
		return
	}

	filtered, total, err := h.analytics.FilterRules(sel)
	if err != nil {
		h.logger.Error("filter rules", "error", err)
		sse.PatchElements(`<div id="rules-content"><div class="notice">Rules data is unavailable. Run the upstream analysis first.</div></div>`)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"ruleSummary": analytics.SummarizeRules(total, filtered),
		"topRules":    analytics.TopRulesByLift(filtered, analytics.TopRulesLimit),
		"rules":       filtered,
	})
	if err != nil {
		h.logger.Error("marshal rule signals", "error", err)
		return
	}
	sse.PatchSignals(payload)
	sse.PatchElements(`<div id="rules-content">Rules data loaded</div>`)

	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"olist-dashboard/internal/analytics"
	"olist-dashboard/internal/models"
)

func makeOrder(id, state, category string, year, month int, price, freight float64, review int) models.Order {
	o := models.Order{
		OrderID:      id,
		State:        state,
		Category:     category,
		Year:         year,
		Month:        month,
		Price:        price,
		FreightValue: freight,
		ReviewScore:  review,
	}
	o.Revenue = price + freight
	o.Period = fmt.Sprintf("%02d/%04d", month, year)
	if price > 0 {
		o.FreightRatio = freight / price
		o.HasFreightRatio = true
	}
	return o
}

func createTestService() *analytics.Service {
	s := analytics.NewService(nil, slog.Default())
	s.SetOrders([]models.Order{
		makeOrder("o1", "SP", "toys", 2023, 1, 100, 10, 5),
		makeOrder("o1", "SP", "toys", 2023, 1, 50, 5, 5),
		makeOrder("o2", "RJ", "books", 2023, 2, 20, 2, 4),
	})
	s.SetRules([]models.Rule{
		{Antecedent: "toys", Consequent: "books", Support: 0.05, Confidence: 0.4, Lift: 1.8},
		{Antecedent: "books", Consequent: "auto", Support: 0.02, Confidence: 0.2, Lift: 1.1},
	})
	return s
}

func doRequest(t *testing.T, h http.HandlerFunc, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h(w, req)

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return w, body
}

func TestHandleSummary(t *testing.T) {
	h := NewAPIHandlers(createTestService(), slog.Default())

	w, body := doRequest(t, h.HandleSummary, "/api/summary?state=SP")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("Cache-Control") != "public, max-age=300" {
		t.Errorf("cache-control = %q", w.Header().Get("Cache-Control"))
	}
	if success, _ := body["success"].(bool); !success {
		t.Fatal("expected success=true")
	}

	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data object")
	}
	if data["total_revenue"].(float64) != 165 {
		t.Errorf("total_revenue = %v, want 165", data["total_revenue"])
	}
	if data["row_count"].(float64) != 2 {
		t.Errorf("row_count = %v, want 2", data["row_count"])
	}
	if data["distinct_orders"].(float64) != 1 {
		t.Errorf("distinct_orders = %v, want 1", data["distinct_orders"])
	}
}

func TestHandleSummary_EmptyFilterResult(t *testing.T) {
	h := NewAPIHandlers(createTestService(), slog.Default())

	w, body := doRequest(t, h.HandleSummary, "/api/summary?state=ZZ")

	// A notice, not a failure: 200 with the specific code in the body.
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if success, _ := body["success"].(bool); success {
		t.Error("expected success=false")
	}

	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error object")
	}
	if errObj["code"] != "EMPTY_FILTER_RESULT" {
		t.Errorf("code = %v, want EMPTY_FILTER_RESULT", errObj["code"])
	}
}

func TestHandleSummary_BadSelection(t *testing.T) {
	h := NewAPIHandlers(createTestService(), slog.Default())

	tests := []struct {
		name   string
		target string
	}{
		{name: "bad year", target: "/api/summary?year=twenty"},
		{name: "bad month", target: "/api/summary?month=13"},
		{name: "bad from date", target: "/api/summary?from=01-2023"},
		{name: "bad to date", target: "/api/summary?to=yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doRequest(t, h.HandleSummary, tt.target)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			errObj, _ := body["error"].(map[string]any)
			if errObj["code"] != "BAD_REQUEST" {
				t.Errorf("code = %v, want BAD_REQUEST", errObj["code"])
			}
		})
	}
}

func TestHandleSalesByPeriod_Chronological(t *testing.T) {
	s := analytics.NewService(nil, slog.Default())
	s.SetOrders([]models.Order{
		makeOrder("o1", "SP", "toys", 2023, 1, 10, 1, 0),
		makeOrder("o2", "SP", "toys", 2022, 12, 10, 1, 0),
		makeOrder("o3", "SP", "toys", 2023, 3, 10, 1, 0),
	})
	h := NewAPIHandlers(s, slog.Default())

	_, body := doRequest(t, h.HandleSalesByPeriod, "/api/sales-by-period")

	data, ok := body["data"].([]any)
	if !ok || len(data) != 3 {
		t.Fatalf("expected 3 periods, got %v", body["data"])
	}

	want := []string{"12/2022", "01/2023", "03/2023"}
	for i, item := range data {
		period := item.(map[string]any)["period"]
		if period != want[i] {
			t.Errorf("data[%d].period = %v, want %v", i, period, want[i])
		}
	}
}

func TestHandleCategoryQuality_InsufficientData(t *testing.T) {
	h := NewAPIHandlers(createTestService(), slog.Default())

	// Three rows can never reach the 10-distinct-order threshold.
	w, body := doRequest(t, h.HandleCategoryQuality, "/api/category-quality")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error object")
	}
	if errObj["code"] != "INSUFFICIENT_DATA" {
		t.Errorf("code = %v, want INSUFFICIENT_DATA", errObj["code"])
	}
}

func TestHandleFreight(t *testing.T) {
	h := NewAPIHandlers(createTestService(), slog.Default())

	_, body := doRequest(t, h.HandleFreight, "/api/freight")

	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data object")
	}
	if data["population"].(float64) != 3 {
		t.Errorf("population = %v, want 3", data["population"])
	}
}

func TestHandleFilterOptions(t *testing.T) {
	h := NewAPIHandlers(createTestService(), slog.Default())

	_, body := doRequest(t, h.HandleFilterOptions, "/api/filter-options")

	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data object")
	}
	states, _ := data["states"].([]any)
	if len(states) != 2 {
		t.Errorf("states = %v, want [RJ SP]", states)
	}
}

func TestHandleRules(t *testing.T) {
	h := NewAPIHandlers(createTestService(), slog.Default())

	w, body := doRequest(t, h.HandleRules, "/api/rules?min_lift=1.5&min_confidence=0.3")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data object")
	}

	summary := data["summary"].(map[string]any)
	if summary["total_rules"].(float64) != 2 {
		t.Errorf("total_rules = %v, want 2", summary["total_rules"])
	}
	if summary["filtered_rules"].(float64) != 1 {
		t.Errorf("filtered_rules = %v, want 1", summary["filtered_rules"])
	}

	rules, _ := data["rules"].([]any)
	if len(rules) != 1 {
		t.Fatalf("rules = %v, want 1 filtered rule", data["rules"])
	}
}

func TestHandleRules_BadThreshold(t *testing.T) {
	h := NewAPIHandlers(createTestService(), slog.Default())

	w, _ := doRequest(t, h.HandleRules, "/api/rules?min_lift=high")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleHealth(t *testing.T) {
	h := NewAPIHandlers(createTestService(), slog.Default())

	w, body := doRequest(t, h.HandleHealth, "/health")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	data, _ := body["data"].(map[string]any)
	if data["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", data["status"])
	}
}

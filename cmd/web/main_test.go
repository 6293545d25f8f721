package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"olist-dashboard/internal/analytics"
	"olist-dashboard/internal/models"
	"olist-dashboard/internal/server"
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

func newTestService() *analytics.Service {
	s := analytics.NewService(nil, slog.Default())
	s.SetOrders([]models.Order{
		makeOrder("o1", "SP", "toys", 2023, 1, 100, 10, 5),
		makeOrder("o1", "SP", "toys", 2023, 1, 50, 5, 5),
		makeOrder("o2", "RJ", "books", 2023, 2, 20, 2, 4),
	})
	s.SetRules([]models.Rule{
		{Antecedent: "toys", Consequent: "books", Support: 0.05, Confidence: 0.4, Lift: 1.8},
	})
	return s
}

func newTestServer() *server.Server {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	templateHandlers := &server.TemplateHandlers{Dashboard: dashboardHandler(true)}
	return server.NewServer(newTestService(), logger, templateHandlers)
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{path: "/", expectedStatus: http.StatusOK},
		{path: "/health", expectedStatus: http.StatusOK},
		{path: "/admin/stats", expectedStatus: http.StatusOK},
		{path: "/api/summary", expectedStatus: http.StatusOK},
		{path: "/api/sales-by-period", expectedStatus: http.StatusOK},
		{path: "/api/revenue-by-state", expectedStatus: http.StatusOK},
		{path: "/api/top-categories", expectedStatus: http.StatusOK},
		{path: "/api/freight", expectedStatus: http.StatusOK},
		{path: "/api/filter-options", expectedStatus: http.StatusOK},
		{path: "/api/rules", expectedStatus: http.StatusOK},
		{path: "/sse/refresh", expectedStatus: http.StatusOK},
		{path: "/sse/rules", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.expectedStatus)
			}
		})
	}
}

func TestServer_DashboardPage(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "Orders Dashboard") {
		t.Error("expected the dashboard page title")
	}
	if !strings.Contains(body, "/sse/refresh") {
		t.Error("expected the page to wire the refresh endpoint")
	}
	if !strings.Contains(body, "rules-content") {
		t.Error("expected the rules section when rules are loaded")
	}
}

func TestServer_FilteredSummaryEndToEnd(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/summary?state=SP", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Success bool           `json:"success"`
		Data    models.Summary `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !body.Success {
		t.Fatal("expected success=true")
	}
	if body.Data.TotalRevenue != 165 {
		t.Errorf("total revenue = %v, want 165", body.Data.TotalRevenue)
	}
	if body.Data.RowCount != 2 || body.Data.DistinctOrders != 1 {
		t.Errorf("counts = %d rows / %d orders, want 2 / 1",
			body.Data.RowCount, body.Data.DistinctOrders)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/summary", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/summary = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

// Package templates holds the dashboard page components. The page is a
// static shell; the KPI fragment and chart signals stream in over the
// datastar SSE endpoints as the filter widgets change.
package templates

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

var dashboardPage = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Orders Dashboard</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@main/bundles/datastar.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f5f6f8; color: #1c2430; }
header { background: #1c2430; color: #fff; padding: 1rem 2rem; }
main { padding: 1.5rem 2rem; display: grid; gap: 1.5rem; }
.kpi-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 1rem; }
.kpi { background: #fff; border-radius: 8px; padding: 1rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
.kpi-label { display: block; font-size: .8rem; color: #6b7280; }
.notice { background: #fff7e6; border: 1px solid #f0c36d; border-radius: 8px; padding: 1rem; }
.panel { background: #fff; border-radius: 8px; padding: 1rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
</style>
</head>
<body>
<header><h1>{{.Title}}</h1></header>
<main data-on-load="@get('/sse/refresh')">
<section id="kpi-content" class="panel">Loading…</section>
<section id="period-content" class="panel" data-signals-periodData="[]">Monthly sales</section>
<section id="state-content" class="panel" data-signals-stateData="[]">Revenue by state</section>
<section id="category-content" class="panel" data-signals-categoryData="[]">Top categories</section>
<section id="quality-content" class="panel" data-signals-qualityData="[]">Category quality</section>
<section id="freight-content" class="panel" data-signals-freightData="{}">Freight ratio</section>
{{if .ShowRules}}<section id="rules-content" class="panel" data-on-load="@get('/sse/rules')">Association rules</section>{{end}}
</main>
</body>
</html>`))

type pageData struct {
	Title     string
	ShowRules bool
}

// Dashboard returns the dashboard page component.
func Dashboard(showRules bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return dashboardPage.Execute(w, pageData{
			Title:     "E-Commerce Orders Dashboard",
			ShowRules: showRules,
		})
	})
}

package handlers

import (
	"net/http"

	"github.com/civicreport/civic-report-api/api"
)

const defaultMetricsRoutes = 20

// formatRouteMetrics converts duration fields to milliseconds for JSON serialization
func formatRouteMetrics(routes []api.RouteMetrics) []map[string]interface{} {
	result := make([]map[string]interface{}, len(routes))
	for i, route := range routes {
		result[i] = map[string]interface{}{
			"method":      route.Method,
			"path":        route.Path,
			"count":       route.Count,
			"errorCount":  route.ErrorCount,
			"avgTime":     route.AvgTime.Milliseconds(),
			"maxTime":     route.MaxTime.Milliseconds(),
			"lastRequest": route.LastRequest,
		}
	}
	return result
}

// MetricsHandler handles metrics dashboard requests
type MetricsHandler struct {
	Collector *api.MetricsCollector
}

// GetMetricsDashboard returns the request summary and the slowest routes
func (m MetricsHandler) GetMetricsDashboard(w http.ResponseWriter, r *http.Request) {
	if m.Collector == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"summary": api.MetricsSummary{}, "routes": []interface{}{}})
		return
	}

	limit := queryInt(r, "limit")
	if limit <= 0 {
		limit = defaultMetricsRoutes
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary": m.Collector.Summary(),
		"routes":  formatRouteMetrics(m.Collector.SlowestRoutes(limit)),
	})
}

package collector

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusSummary is the JSON view of the last check of every provider.
type StatusSummary struct {
	Providers []ProviderMetrics `json:"providers"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Running   int               `json:"running"`
}

// Summary orders providers by name and counts them by status.
func (mc *MetricsCollector) Summary() StatusSummary {
	all := mc.GetAllProviderMetrics()
	summary := StatusSummary{Providers: make([]ProviderMetrics, 0, len(all))}
	for _, m := range all {
		summary.Providers = append(summary.Providers, m)
		switch m.CheckStatus {
		case "success":
			summary.Succeeded++
		case "failed":
			summary.Failed++
		case "running":
			summary.Running++
		}
	}
	sort.Slice(summary.Providers, func(i, j int) bool {
		return summary.Providers[i].ProviderName < summary.Providers[j].ProviderName
	})
	return summary
}

func (mc *MetricsCollector) ExposeProviderStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, mc.Summary())
}

// ExposeWebMetrics serves the provider status summary and the default
// Prometheus registry, which also carries the OpenTelemetry run instruments.
func (mc *MetricsCollector) ExposeWebMetrics(e *echo.Echo) {
	e.GET("/metrics", mc.ExposeProviderStatus)
	e.GET("/metrics/prometheus", echo.WrapHandler(promhttp.Handler()))
}

package collector

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once
	mc   *MetricsCollector
)

type ProviderMetrics struct {
	CheckStatus    string    `json:"check_status"`
	ProviderName   string    `json:"provider_name"`
	LastChecked    time.Time `json:"last_checked"`
	LastDuration   string    `json:"last_duration,omitempty"`
	CatalogEntries int       `json:"catalog_entries"`
	FailureReason  string    `json:"failure_reason,omitempty"`
}

type MetricsCollector struct {
	mu              sync.RWMutex
	providerMetrics map[string]*ProviderMetrics

	checkCount        *prometheus.CounterVec
	checkFailedCount  *prometheus.CounterVec
	checkDuration     *prometheus.GaugeVec
	catalogEntries    *prometheus.GaugeVec
	boundsUpdated     *prometheus.CounterVec
	servicesMissing   *prometheus.CounterVec
	servicesDisabled  prometheus.Counter
	runsTotal         *prometheus.CounterVec
	runDuration       prometheus.Histogram
	runActive         prometheus.Gauge
	notificationsSent *prometheus.CounterVec
}

// GetMetricsCollector returns the process-wide collector, registering the
// metrics on first use.
func GetMetricsCollector() *MetricsCollector {
	once.Do(func() {
		mc = &MetricsCollector{
			providerMetrics: make(map[string]*ProviderMetrics),

			checkCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "servicecheck_provider_checks_total",
				Help: "Total number of catalog checks initiated by provider.",
			}, []string{"provider"}),

			checkFailedCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "servicecheck_provider_checks_failed_total",
				Help: "Total number of failed catalog checks by provider and reason.",
			}, []string{"provider", "reason"}),

			checkDuration: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "servicecheck_provider_check_duration_seconds",
				Help: "Duration of the last catalog check in seconds.",
			}, []string{"provider"}),

			catalogEntries: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "servicecheck_provider_catalog_entries",
				Help: "Number of entries in the last fetched catalog.",
			}, []string{"provider"}),

			boundsUpdated: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "servicecheck_bounds_updated_total",
				Help: "Total number of local services whose min/max were refreshed.",
			}, []string{"provider"}),

			servicesMissing: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "servicecheck_services_missing_total",
				Help: "Total number of local services found missing from a provider catalog.",
			}, []string{"provider"}),

			servicesDisabled: promauto.NewCounter(prometheus.CounterOpts{
				Name: "servicecheck_services_deactivated_total",
				Help: "Total number of local services deactivated.",
			}),

			runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "servicecheck_runs_total",
				Help: "Total number of check runs by trigger and final status.",
			}, []string{"trigger", "status"}),

			runDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "servicecheck_run_duration_seconds",
				Help:    "Duration of complete check runs in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			}),

			runActive: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "servicecheck_run_active",
				Help: "1 while a check run is in progress.",
			}),

			notificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "servicecheck_notifications_total",
				Help: "Total number of admin reports by kind and delivery status.",
			}, []string{"report", "status"}),
		}
	})

	return mc
}

func (mc *MetricsCollector) providerEntry(providerName string) *ProviderMetrics {
	if _, exists := mc.providerMetrics[providerName]; !exists {
		mc.providerMetrics[providerName] = &ProviderMetrics{ProviderName: providerName, CheckStatus: "idle"}
	}
	return mc.providerMetrics[providerName]
}

func (mc *MetricsCollector) SetCheckRunning(providerName string) {
	mc.mu.Lock()
	mc.providerEntry(providerName).CheckStatus = "running"
	mc.mu.Unlock()

	mc.checkCount.With(prometheus.Labels{"provider": providerName}).Inc()
}

func (mc *MetricsCollector) SetCheckSuccess(providerName string, entries int, duration time.Duration) {
	mc.mu.Lock()
	m := mc.providerEntry(providerName)
	m.CheckStatus = "success"
	m.LastChecked = time.Now()
	m.LastDuration = duration.String()
	m.CatalogEntries = entries
	m.FailureReason = ""
	mc.mu.Unlock()

	mc.checkDuration.With(prometheus.Labels{"provider": providerName}).Set(duration.Seconds())
	mc.catalogEntries.With(prometheus.Labels{"provider": providerName}).Set(float64(entries))
}

// SetCheckFailed records a failed check. reason should be a short, low
// cardinality label such as "fetch" or "datastore".
func (mc *MetricsCollector) SetCheckFailed(providerName, reason string, duration time.Duration) {
	mc.mu.Lock()
	m := mc.providerEntry(providerName)
	m.CheckStatus = "failed"
	m.LastChecked = time.Now()
	m.LastDuration = duration.String()
	m.FailureReason = reason
	mc.mu.Unlock()

	mc.checkFailedCount.With(prometheus.Labels{"provider": providerName, "reason": reason}).Inc()
	mc.checkDuration.With(prometheus.Labels{"provider": providerName}).Set(duration.Seconds())
}

func (mc *MetricsCollector) AddBoundsUpdated(providerName string, count int) {
	mc.boundsUpdated.With(prometheus.Labels{"provider": providerName}).Add(float64(count))
}

func (mc *MetricsCollector) AddServicesMissing(providerName string, count int) {
	mc.servicesMissing.With(prometheus.Labels{"provider": providerName}).Add(float64(count))
}

func (mc *MetricsCollector) AddServicesDeactivated(count int) {
	mc.servicesDisabled.Add(float64(count))
}

func (mc *MetricsCollector) SetRunActive(active bool) {
	if active {
		mc.runActive.Set(1)
		return
	}
	mc.runActive.Set(0)
}

func (mc *MetricsCollector) ObserveRun(trigger, status string, duration time.Duration) {
	mc.runsTotal.With(prometheus.Labels{"trigger": trigger, "status": status}).Inc()
	mc.runDuration.Observe(duration.Seconds())
}

func (mc *MetricsCollector) IncrementNotifications(report, status string) {
	mc.notificationsSent.With(prometheus.Labels{"report": report, "status": status}).Inc()
}

// GetAllProviderMetrics returns a snapshot of the per-provider check status.
func (mc *MetricsCollector) GetAllProviderMetrics() map[string]ProviderMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	metricsCopy := make(map[string]ProviderMetrics, len(mc.providerMetrics))
	for name, metrics := range mc.providerMetrics {
		metricsCopy[name] = *metrics
	}
	return metricsCopy
}

func (pm ProviderMetrics) String() string {
	return fmt.Sprintf("Provider: %s, Status: %s", pm.ProviderName, pm.CheckStatus)
}

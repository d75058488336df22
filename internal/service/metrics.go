package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

// Metric names.
const (
	MetricRankingDuration    = "ese_ranking_duration_seconds"
	MetricSearchesTotal      = "ese_searches_total"
	MetricMetricUnavailable  = "ese_metric_unavailable_total"
	MetricCacheRequests      = "ese_cache_requests_total"
	MetricCreatorsDiscovered = "ese_creators_discovered_total"
	MetricCreatorRefreshes   = "ese_creator_refreshes_total"
)

// Metrics holds the Prometheus collectors of the ranking services. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	rankingDuration    prometheus.Histogram
	searches           *prometheus.CounterVec
	metricUnavailable  *prometheus.CounterVec
	cacheRequests      *prometheus.CounterVec
	creatorsDiscovered prometheus.Counter
	creatorRefreshes   *prometheus.CounterVec
}

// NewMetrics creates the collectors without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		rankingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRankingDuration,
			Help:    "Duration of complete ranking passes in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSearchesTotal,
			Help: "Ranking passes by outcome",
		}, []string{"status"}),
		metricUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricMetricUnavailable,
			Help: "Metric evaluations excluded because the creator lacked data",
		}, []string{"metric"}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCacheRequests,
			Help: "Cache lookups by cache and result",
		}, []string{"cache", "result"}),
		creatorsDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCreatorsDiscovered,
			Help: "Creators added to the corpus by discovery",
		}),
		creatorRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCreatorRefreshes,
			Help: "Creator refreshes by result",
		}, []string{"result"}),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors, mainly for tests.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rankingDuration,
		m.searches,
		m.metricUnavailable,
		m.cacheRequests,
		m.creatorsDiscovered,
		m.creatorRefreshes,
	}
}

func (m *Metrics) observeSearch(status string, seconds float64) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(status).Inc()
	if status == model.StatusComplete {
		m.rankingDuration.Observe(seconds)
	}
}

func (m *Metrics) observeUnavailable(id model.MetricID) {
	if m == nil {
		return
	}
	m.metricUnavailable.WithLabelValues(string(id)).Inc()
}

func (m *Metrics) observeCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) addDiscovered(n int) {
	if m == nil {
		return
	}
	m.creatorsDiscovered.Add(float64(n))
}

func (m *Metrics) observeRefresh(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.creatorRefreshes.WithLabelValues(result).Inc()
}

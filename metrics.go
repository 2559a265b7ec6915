package inject

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors scopes report to.
type Metrics struct {
	Constructions        *prometheus.CounterVec
	ConstructionDuration *prometheus.HistogramVec
	Resolutions          *prometheus.CounterVec
	CacheHits            *prometheus.CounterVec
	ReleaseFailures      prometheus.Counter
	OpenScopes           prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered. Collectors already registered with reg are
// reused, so several registries can share one Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Constructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inject",
				Name:      "constructions_total",
				Help:      "Total number of values built by providers",
			},
			[]string{"lifetime"},
		),
		ConstructionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "inject",
				Name:      "construction_duration_seconds",
				Help:      "Time spent in provider build functions",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"lifetime"},
		),
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inject",
				Name:      "resolutions_total",
				Help:      "Total number of resolution calls by result",
			},
			[]string{"result"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inject",
				Name:      "cache_hits_total",
				Help:      "Total number of values served from a scope cache",
			},
			[]string{"lifetime"},
		),
		ReleaseFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "inject",
				Name:      "release_failures_total",
				Help:      "Total number of release functions that failed or panicked",
			},
		),
		OpenScopes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "inject",
				Name:      "open_scopes",
				Help:      "Number of scopes created and not yet closed",
			},
		),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	m.Constructions, err = register(reg, m.Constructions)
	if err != nil {
		return nil, err
	}
	m.ConstructionDuration, err = register(reg, m.ConstructionDuration)
	if err != nil {
		return nil, err
	}
	m.Resolutions, err = register(reg, m.Resolutions)
	if err != nil {
		return nil, err
	}
	m.CacheHits, err = register(reg, m.CacheHits)
	if err != nil {
		return nil, err
	}
	m.ReleaseFailures, err = register(reg, m.ReleaseFailures)
	if err != nil {
		return nil, err
	}
	m.OpenScopes, err = register(reg, m.OpenScopes)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) constructed(l Lifetime, d time.Duration) {
	if m == nil {
		return
	}
	m.Constructions.WithLabelValues(l.String()).Inc()
	m.ConstructionDuration.WithLabelValues(l.String()).Observe(d.Seconds())
}

func (m *Metrics) resolved(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Resolutions.WithLabelValues(result).Inc()
}

func (m *Metrics) cacheHit(l Lifetime) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(l.String()).Inc()
}

func (m *Metrics) releaseFailed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ReleaseFailures.Add(float64(n))
}

func (m *Metrics) scopeOpened() {
	if m == nil {
		return
	}
	m.OpenScopes.Inc()
}

func (m *Metrics) scopeClosed() {
	if m == nil {
		return
	}
	m.OpenScopes.Dec()
}

package sinks

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/antyra/ranksync/internal/progress"
)

// PrometheusSink exports sync progress metrics via Prometheus. It owns all
// collectors for runs, per-domain jobs, and keyword lookups.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runRuntime    prometheus.Histogram

	domainsCompleted *prometheus.CounterVec
	domainsRunning   prometheus.Gauge
	domainRuntime    *prometheus.HistogramVec

	keywordsChecked *prometheus.CounterVec
	keywordDuration *prometheus.HistogramVec

	tracker *domainTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranksync_runs_started_total",
			Help: "Total sync runs that have started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranksync_runs_completed_total",
			Help: "Total sync runs that have finished.",
		}),
		runRuntime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ranksync_run_runtime_seconds",
			Help:    "Wall time per completed sync run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		domainsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranksync_domains_completed_total",
			Help: "Domain sync jobs completed partitioned by result.",
		}, []string{"result"}),
		domainsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ranksync_domains_running",
			Help: "Current number of in-flight domain sync jobs.",
		}),
		domainRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ranksync_domain_runtime_seconds",
			Help:    "Wall time per domain sync job.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"result"}),
		keywordsChecked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranksync_keywords_checked_total",
			Help: "Keyword lookups partitioned by domain and whether a rank was found.",
		}, []string{"domain", "found"}),
		keywordDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ranksync_keyword_duration_seconds",
			Help:    "Keyword lookup latency partitioned by domain.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"domain"}),
		tracker: newDomainTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runRuntime,
		s.domainsCompleted,
		s.domainsRunning,
		s.domainRuntime,
		s.keywordsChecked,
		s.keywordDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
	case progress.StageRunDone:
		s.runsCompleted.Inc()
		if evt.Dur > 0 {
			s.runRuntime.Observe(evt.Dur.Seconds())
		}
	case progress.StageDomainStart:
		if s.tracker.start(evt.RunID, evt.Domain) {
			s.domainsRunning.Inc()
		}
	case progress.StageDomainDone:
		s.completeDomain(evt, "success")
	case progress.StageDomainError:
		s.completeDomain(evt, "error")
	case progress.StageKeywordChecked:
		s.keywordsChecked.WithLabelValues(evt.Domain, strconv.FormatBool(evt.Found)).Inc()
		if evt.Dur > 0 {
			s.keywordDuration.WithLabelValues(evt.Domain).Observe(evt.Dur.Seconds())
		}
	}
}

func (s *PrometheusSink) completeDomain(evt progress.Event, result string) {
	s.domainsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.domainRuntime.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
	if s.tracker.complete(evt.RunID, evt.Domain) {
		s.domainsRunning.Dec()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type domainTracker struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newDomainTracker() *domainTracker {
	return &domainTracker{running: make(map[string]struct{})}
}

func trackerKey(runID, domain string) string {
	return runID + "|" + domain
}

func (t *domainTracker) start(runID, domain string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := trackerKey(runID, domain)
	if _, ok := t.running[key]; ok {
		return false
	}
	t.running[key] = struct{}{}
	return true
}

func (t *domainTracker) complete(runID, domain string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := trackerKey(runID, domain)
	if _, ok := t.running[key]; !ok {
		return false
	}
	delete(t.running, key)
	return true
}

package statistics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "appbundle"

// Resolution outcomes.
const (
	OutcomeBundle = "bundle"
	OutcomeAlias  = "alias"
	OutcomeMiss   = "miss"
)

// Resource request outcomes.
const (
	ResourceServed    = "served"
	ResourceNotFound  = "not_found"
	ResourceUnhandled = "unhandled"
)

// Recorder collects routing metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry
	handler  http.Handler

	resolutionsM   *prometheus.CounterVec
	redirectsM     prometheus.Counter
	registrationsM *prometheus.CounterVec
	resourcesM     *prometheus.CounterVec
	sessionsM      prometheus.Gauge

	Hits *HitRecordList
}

func NewRecorder(statsFile string) *Recorder {
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: "route",
		Name:      "resolutions_total",
		Help:      "The total of URL resolutions by outcome.",
	}, []string{"outcome"})

	redirects := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: "navigation",
		Name:      "redirects_total",
		Help:      "The total of top-level navigations redirected.",
	})

	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: "route",
		Name:      "registrations_total",
		Help:      "The total of rule registrations by result.",
	}, []string{"result"})

	resources := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: "resource",
		Name:      "requests_total",
		Help:      "The total of intercepted resource requests by outcome.",
	}, []string{"outcome"})

	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: "session",
		Name:      "active",
		Help:      "The number of live sessions.",
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		resolutions,
		redirects,
		registrations,
		resources,
		sessions,
	)

	return &Recorder{
		registry:       registry,
		handler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		resolutionsM:   resolutions,
		redirectsM:     redirects,
		registrationsM: registrations,
		resourcesM:     resources,
		sessionsM:      sessions,
		Hits:           NewHitRecordList(statsFile),
	}
}

func (r *Recorder) Start() {
	r.Hits.Run(5 * time.Second)
}

func (r *Recorder) Close() error {
	r.Hits.Close()
	return nil
}

func (r *Recorder) Handler() http.Handler {
	return r.handler
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Resolution records the outcome of a lookup; match is empty on a miss.
func (r *Recorder) Resolution(outcome, match, url, rewritten string) {
	if r == nil {
		return
	}
	r.resolutionsM.WithLabelValues(outcome).Inc()
	if outcome != OutcomeMiss {
		r.Hits.Offer(&HitRecord{Match: match, LastURL: url, Rewritten: rewritten})
	}
}

func (r *Recorder) Redirect() {
	if r == nil {
		return
	}
	r.redirectsM.Inc()
}

func (r *Recorder) Registration(result string) {
	if r == nil {
		return
	}
	r.registrationsM.WithLabelValues(result).Inc()
}

func (r *Recorder) Resource(outcome string) {
	if r == nil {
		return
	}
	r.resourcesM.WithLabelValues(outcome).Inc()
}

func (r *Recorder) SessionOpened() {
	if r == nil {
		return
	}
	r.sessionsM.Inc()
}

// SessionClosed covers explicit deletes as well as expiry and eviction.
func (r *Recorder) SessionClosed() {
	if r == nil {
		return
	}
	r.sessionsM.Dec()
}

// Package metrics exposes Prometheus collectors for generation and sending.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

const namespace = "outreach"

// Recorder holds the pipeline collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	generations       *prometheus.CounterVec
	generationSeconds *prometheus.HistogramVec
	attempts          *prometheus.CounterVec
	sends             *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Emails generated, by provenance method.",
		}, []string{"method"}),
		generationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_seconds",
			Help:      "Wall time spent generating one email, by provenance method.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 30, 60, 90},
		}, []string{"method"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Remote generation attempts, by stage and result.",
		}, []string{"stage", "result"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "SMTP send attempts, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(r.generations, r.generationSeconds, r.attempts, r.sends)
	return r
}

// ObserveGeneration records one finished record.
func (r *Recorder) ObserveGeneration(method model.Method, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(string(method)).Inc()
	r.generationSeconds.WithLabelValues(string(method)).Observe(elapsed.Seconds())
}

// ObserveAttempt records one remote generation attempt.
func (r *Recorder) ObserveAttempt(stage model.Stage, ok bool) {
	if r == nil {
		return
	}
	r.attempts.WithLabelValues(string(stage), result(ok)).Inc()
}

// ObserveSend records one send attempt.
func (r *Recorder) ObserveSend(ok bool) {
	if r == nil {
		return
	}
	r.sends.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

var storedEmailsDesc = prometheus.NewDesc(
	prometheus.BuildFQName(namespace, "", "stored_emails"),
	"Emails in the history store, by method and send state.",
	[]string{"method", "sent"},
	nil,
)

// StatsSource reports stored email counts.
type StatsSource interface {
	EmailStats(ctx context.Context) ([]model.EmailStat, error)
}

// StoreCollector reads email counts from the store on each scrape.
type StoreCollector struct {
	src StatsSource
}

// NewStoreCollector wraps src as a collector.
func NewStoreCollector(src StatsSource) *StoreCollector {
	return &StoreCollector{src: src}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- storedEmailsDesc
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.src.EmailStats(context.Background())
	if err != nil {
		zap.L().Error("metrics: collect stored email stats", zap.Error(err))
		return
	}
	for _, s := range stats {
		ch <- prometheus.MustNewConstMetric(
			storedEmailsDesc,
			prometheus.GaugeValue,
			float64(s.Count),
			string(s.Method),
			strconv.FormatBool(s.Sent),
		)
	}
}

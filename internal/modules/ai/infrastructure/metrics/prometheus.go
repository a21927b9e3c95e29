// Package metrics 导出 RAG 与外部依赖调用的 Prometheus 指标
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"MarketMind/pkg/xerr"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "marketmind"
	subsystem = "ai"
)

// Exporter 使用独立 registry，不注册到全局 DefaultRegisterer
type Exporter struct {
	registry *prometheus.Registry

	callLatency  *prometheus.HistogramVec
	callAttempts *prometheus.CounterVec

	completionRequests *prometheus.CounterVec
	completionTokens   *prometheus.CounterVec
	completionLatency  *prometheus.HistogramVec

	ingestFields    *prometheus.CounterVec
	retrieveResults *prometheus.CounterVec
	pipelineLatency *prometheus.HistogramVec
}

type Config struct {
	Registry       *prometheus.Registry
	LatencyBuckets []float64 // 秒
}

func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}
}

func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.callLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "external_call_latency_seconds",
		Help:      "Latency of guarded calls to embedding, vector store and LLM backends",
		Buckets:   cfg.LatencyBuckets,
	}, []string{"service", "op", "outcome"})

	e.callAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "external_call_attempts_total",
		Help:      "Attempts made by guarded calls, retries included",
	}, []string{"service", "op"})

	e.completionRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "completion_requests_total",
		Help:      "Completion plugin executions",
	}, []string{"service_type", "cache", "status"})

	e.completionTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "completion_tokens_total",
		Help:      "LLM tokens consumed by completion plugins",
	}, []string{"service_type"})

	e.completionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "completion_latency_seconds",
		Help:      "Completion plugin latency",
		Buckets:   cfg.LatencyBuckets,
	}, []string{"service_type"})

	e.ingestFields = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "ingest_fields_total",
		Help:      "Fields handled by the ingestion pipeline by status",
	}, []string{"status"})

	e.retrieveResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "retrieve_requests_total",
		Help:      "Retrieval requests by outcome",
	}, []string{"outcome"})

	e.pipelineLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "pipeline_latency_seconds",
		Help:      "End to end latency of ingest and retrieve pipelines",
		Buckets:   cfg.LatencyBuckets,
	}, []string{"pipeline"})

	registry.MustRegister(
		e.callLatency, e.callAttempts,
		e.completionRequests, e.completionTokens, e.completionLatency,
		e.ingestFields, e.retrieveResults, e.pipelineLatency,
	)
	return e
}

// Registry 供测试与额外 collector 注册
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler 暴露 /metrics
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

// ObserveCall 实现 resilience.Observer
func (e *Exporter) ObserveCall(service, op string, attempts int, err error, elapsed time.Duration) {
	if e == nil {
		return
	}
	e.callLatency.WithLabelValues(service, op, outcome(err)).Observe(elapsed.Seconds())
	e.callAttempts.WithLabelValues(service, op).Add(float64(attempts))
}

// ObserveCompletion 实现 pipeline.CompletionObserver
func (e *Exporter) ObserveCompletion(serviceType string, cacheHit bool, tokens int, err error, elapsed time.Duration) {
	if e == nil {
		return
	}
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	e.completionRequests.WithLabelValues(serviceType, cache, outcome(err)).Inc()
	if tokens > 0 {
		e.completionTokens.WithLabelValues(serviceType).Add(float64(tokens))
	}
	e.completionLatency.WithLabelValues(serviceType).Observe(elapsed.Seconds())
}

// ObserveIngest 记录一次 ingest 的字段统计
func (e *Exporter) ObserveIngest(stored, skipped, failed int, elapsed time.Duration) {
	if e == nil {
		return
	}
	e.ingestFields.WithLabelValues("stored").Add(float64(stored))
	e.ingestFields.WithLabelValues("skipped").Add(float64(skipped))
	e.ingestFields.WithLabelValues("failed").Add(float64(failed))
	e.pipelineLatency.WithLabelValues("ingest").Observe(elapsed.Seconds())
}

// ObserveRetrieve empty 与 err 互斥，err 优先
func (e *Exporter) ObserveRetrieve(empty bool, err error, elapsed time.Duration) {
	if e == nil {
		return
	}
	switch {
	case err != nil:
		e.retrieveResults.WithLabelValues(outcome(err)).Inc()
	case empty:
		e.retrieveResults.WithLabelValues("empty").Inc()
	default:
		e.retrieveResults.WithLabelValues("ok").Inc()
	}
	e.pipelineLatency.WithLabelValues("retrieve").Observe(elapsed.Seconds())
}

// outcome 按错误码归类，标签基数固定
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var ce *xerr.CodeError
	if errors.As(err, &ce) {
		return "code_" + strconv.Itoa(ce.Code)
	}
	return "error"
}

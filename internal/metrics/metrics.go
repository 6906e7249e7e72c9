// Package metrics provides Prometheus metrics for the prediction service:
// prediction volume, failure and degradation counters, latency and
// confidence distributions, and registry state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the prediction service.
type Metrics struct {
	PredictionsTotal   prometheus.Counter   // Predictions produced, any tier
	PredictionFailures prometheus.Counter   // Per-model predict failures (excluded from the sum)
	DegradedTotal      prometheus.Counter   // Predictions served by the raw-mean path
	FallbackUse        prometheus.Counter   // Predictions served by the outer fallback tier
	ModelLoadFailures  prometheus.Counter   // Artifacts skipped during a registry load
	RegistryReloads    prometheus.Counter   // Successful registry reloads
	ModelsLoaded       prometheus.Gauge     // Models in the active registry
	PredictionLatency  prometheus.Histogram // End-to-end single prediction latency
	ConfidenceScores   prometheus.Histogram // Distribution of confidence scores
	BatchSize          prometheus.Histogram // Resolved items per batch request
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, which keeps
// tests isolated from the global registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of grade predictions produced",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_model_failures_total",
			Help: "Total number of per-model prediction failures excluded from the ensemble",
		}),
		DegradedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_degraded_total",
			Help: "Total number of predictions served by the raw-mean degraded path",
		}),
		FallbackUse: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_fallback_use_total",
			Help: "Total number of predictions served by the fallback tier",
		}),
		ModelLoadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_load_failures_total",
			Help: "Total number of model or scaler artifacts skipped during load",
		}),
		RegistryReloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_registry_reloads_total",
			Help: "Total number of model registry reloads",
		}),
		ModelsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "models_loaded",
			Help: "Number of model artifacts in the active registry",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end latency of a single prediction",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		ConfidenceScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence_scores",
			Help:    "Distribution of prediction confidence scores",
			Buckets: prometheus.LinearBuckets(0.5, 0.05, 11),
		}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_batch_size",
			Help:    "Number of resolved students per batch prediction request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

package ml

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines the metrics methods the engine reports to.
// A nil implementation disables reporting, which tests rely on.
type MetricsInterface interface {
	PredictionsInc()
	FailuresInc()
	DegradedInc()
	FallbackInc()
	LoadFailureInc()
	ReloadInc()
	LatencyObserve(float64)
	ConfidenceObserve(float64)
	ModelsLoadedSet(float64)
}

// baseWeights are the static per-model weights fixed at training time.
// Weights are renormalized at prediction time over whichever models
// actually produced a value.
var baseWeights = map[string]float64{
	"linear":            0.15,
	"ridge":             0.20,
	"lasso":             0.10,
	"random_forest":     0.25,
	"gradient_boosting": 0.30,
}

// defaultWeight applies to any loaded model missing from baseWeights.
const defaultWeight = 0.2

// Result is the outcome of one prediction, in either tier.
type Result struct {
	USN                   string             `json:"usn"`
	Name                  string             `json:"name"`
	PredictedGrade        float64            `json:"predicted_grade"`
	Confidence            float64            `json:"confidence"`
	ModelUsed             string             `json:"model_used"`
	Factors               []string           `json:"factors"`
	IndividualPredictions map[string]float64 `json:"individual_predictions,omitempty"`
}

// Engine combines the model registry with the weighted-ensemble
// prediction algorithm. Predictions are stateless reads of the currently
// published registry; Reload builds a replacement registry off to the
// side and swaps it in atomically, so in-flight predictions always see a
// single generation of artifacts.
type Engine struct {
	modelDir string
	active   atomic.Pointer[Registry]
	reloadMu sync.Mutex
	metrics  MetricsInterface
}

// NewEngine loads the registry once and publishes it.
func NewEngine(modelDir string, metrics MetricsInterface) *Engine {
	e := &Engine{modelDir: modelDir, metrics: metrics}
	e.publish(LoadRegistry(modelDir, metrics))
	return e
}

func (e *Engine) publish(r *Registry) {
	e.active.Store(r)
	if e.metrics != nil {
		e.metrics.ModelsLoadedSet(float64(len(r.models)))
	}
}

// Registry returns the currently published registry generation.
func (e *Engine) Registry() *Registry {
	return e.active.Load()
}

// Ready reports whether at least one load attempt has completed.
func (e *Engine) Ready() bool {
	return e.Registry().Ready()
}

// AvailableModels lists the model names in the current generation.
func (e *Engine) AvailableModels() []string {
	return e.Registry().AvailableModels()
}

// Reload rebuilds the registry from disk and publishes it in one swap.
// Safe to call while predictions are in flight; concurrent reloads are
// serialized. Reloading unchanged artifacts is a successful no-op.
func (e *Engine) Reload() {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	e.publish(LoadRegistry(e.modelDir, e.metrics))
	if e.metrics != nil {
		e.metrics.ReloadInc()
	}
	log.Info().Strs("models", e.AvailableModels()).Msg("model registry reloaded")
}

// Predict produces the ensemble estimate for one student. It never fails:
// per-model errors are excluded from the combination, and an empty
// surviving set degrades to the mean of the raw feature vector.
func (e *Engine) Predict(rec StudentRecord) Result {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	reg := e.Registry()
	scaled, raw := buildFeatures(rec, reg)

	preds := make(map[string]float64)
	for _, name := range catalogOrder {
		if name == ReservedEnsembleName {
			continue
		}
		m, ok := reg.Model(name)
		if !ok {
			continue
		}
		v, err := m.Predict(scaled)
		if err != nil {
			log.Warn().Err(err).Str("model", name).Str("usn", rec.USN).Msg("model prediction excluded")
			if e.metrics != nil {
				e.metrics.FailuresInc()
			}
			continue
		}
		preds[name] = v
	}

	var grade float64
	if len(preds) > 0 {
		var weighted, totalWeight float64
		for name, v := range preds {
			w, ok := baseWeights[name]
			if !ok {
				w = defaultWeight
			}
			weighted += v * w
			totalWeight += w
		}
		grade = weighted / totalWeight
	} else {
		// Innermost degradation tier: no model produced a value.
		grade = mean(raw)
		if e.metrics != nil {
			e.metrics.DegradedInc()
		}
		log.Warn().Str("usn", rec.USN).Msg("no models available, degrading to raw feature mean")
	}
	grade = clamp(grade, 0, 100)

	confidence := 0.5
	if len(preds) > 1 {
		values := make([]float64, 0, len(preds))
		for _, v := range preds {
			values = append(values, v)
		}
		confidence = math.Max(0.5, 1-popStdDev(values)/20)
	}

	if e.metrics != nil {
		e.metrics.PredictionsInc()
		e.metrics.ConfidenceObserve(confidence)
	}

	var individual map[string]float64
	if len(preds) > 0 {
		individual = make(map[string]float64, len(preds))
		for name, v := range preds {
			individual[name] = round2(v)
		}
	}

	return Result{
		USN:                   rec.USN,
		Name:                  rec.Name,
		PredictedGrade:        round2(grade),
		Confidence:            round2(confidence),
		ModelUsed:             "ensemble",
		Factors:               Factors(rec, grade),
		IndividualPredictions: individual,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// popStdDev is the population standard deviation, matching how model
// agreement was measured when the confidence formula was calibrated.
func popStdDev(values []float64) float64 {
	m := mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

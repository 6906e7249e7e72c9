package ml

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

// ReservedEnsembleName is the artifact that holds the pre-combined model.
// It is loaded and reported by health checks but never invoked directly;
// the weighted combination in Predict replaces it.
const ReservedEnsembleName = "ensemble"

// catalogOrder fixes the iteration order over model artifacts so that
// loading and prediction behave deterministically across runs.
var catalogOrder = []string{"linear", "ridge", "lasso", "random_forest", "gradient_boosting", ReservedEnsembleName}

var modelFiles = map[string]string{
	"linear":             "linear_model.json",
	"ridge":              "ridge_model.json",
	"lasso":              "lasso_model.json",
	"random_forest":      "random_forest_model.json",
	"gradient_boosting":  "gradient_boosting_model.json",
	ReservedEnsembleName: "ensemble_model.json",
}

var scalerFiles = map[string]string{
	"linear": "linear_scaler.json",
	"ridge":  "ridge_scaler.json",
	"lasso":  "lasso_scaler.json",
}

// Registry holds one generation of loaded model and scaler artifacts.
// It is immutable after LoadRegistry returns; a reload always builds a
// fresh Registry and publishes it whole, so readers never observe a mix
// of artifact generations.
type Registry struct {
	models  map[string]Model
	scalers map[string]*Scaler
	loaded  bool
}

// LoadRegistry attempts every catalog artifact under dir. Individual
// missing or corrupt files are logged and skipped; the load itself never
// fails, so a partially populated (or empty) registry is a normal outcome.
func LoadRegistry(dir string, metrics MetricsInterface) *Registry {
	r := &Registry{
		models:  make(map[string]Model),
		scalers: make(map[string]*Scaler),
		loaded:  true,
	}

	for _, name := range catalogOrder {
		path := filepath.Join(dir, modelFiles[name])
		m, err := LoadModel(name, path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("model", name).Str("path", path).Msg("skipping model artifact")
				if metrics != nil {
					metrics.LoadFailureInc()
				}
			}
			continue
		}
		r.models[name] = m
		log.Info().Str("model", name).Msg("loaded model artifact")
	}

	for name, file := range scalerFiles {
		path := filepath.Join(dir, file)
		s, err := LoadScaler(path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("scaler", name).Str("path", path).Msg("skipping scaler artifact")
				if metrics != nil {
					metrics.LoadFailureInc()
				}
			}
			continue
		}
		r.scalers[name] = s
		log.Info().Str("scaler", name).Msg("loaded scaler artifact")
	}

	log.Info().Int("models", len(r.models)).Int("scalers", len(r.scalers)).Str("dir", dir).Msg("model registry built")
	return r
}

// Ready reports whether a load attempt has completed, regardless of how
// many artifacts it found.
func (r *Registry) Ready() bool {
	return r != nil && r.loaded
}

// AvailableModels returns the sorted names of successfully loaded model
// artifacts (scalers excluded).
func (r *Registry) AvailableModels() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Model returns the named model, if it loaded.
func (r *Registry) Model(name string) (Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Scaler returns the named scaler, if it loaded.
func (r *Registry) Scaler(name string) (*Scaler, bool) {
	s, ok := r.scalers[name]
	return s, ok
}

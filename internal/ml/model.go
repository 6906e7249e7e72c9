package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Model is the minimal capability shared by every loaded artifact:
// a fixed-order feature vector in, a scalar grade estimate out.
type Model interface {
	Name() string
	Predict(features []float64) (float64, error)
}

// artifactFile is the on-disk JSON shape shared by all model kinds.
// Only the fields matching the declared kind are populated.
type artifactFile struct {
	Kind         string     `json:"kind"`
	Intercept    float64    `json:"intercept"`
	Coefficients []float64  `json:"coefficients"`
	Trees        []treeSpec `json:"trees"`
	LearningRate float64    `json:"learning_rate"`
	BaseScore    float64    `json:"base_score"`
}

// treeSpec is a flat regression tree: parallel arrays indexed by node id,
// with Feature[i] < 0 marking a leaf whose output is Value[i].
type treeSpec struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

func (t treeSpec) validate() error {
	n := len(t.Feature)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
		return fmt.Errorf("tree node arrays have mismatched lengths")
	}
	return nil
}

// eval walks the tree from the root for a single sample.
func (t treeSpec) eval(features []float64) (float64, error) {
	i := 0
	for hops := 0; hops <= len(t.Feature); hops++ {
		f := t.Feature[i]
		if f < 0 {
			return t.Value[i], nil
		}
		if f >= len(features) {
			return 0, fmt.Errorf("tree references feature %d, vector has %d", f, len(features))
		}
		if features[f] <= t.Threshold[i] {
			i = t.Left[i]
		} else {
			i = t.Right[i]
		}
		if i < 0 || i >= len(t.Feature) {
			return 0, fmt.Errorf("tree child index %d out of range", i)
		}
	}
	return 0, fmt.Errorf("tree walk did not terminate")
}

// LinearModel covers the linear, ridge and lasso artifacts: the training
// pipeline exports them all as intercept plus one coefficient per semester.
type LinearModel struct {
	name      string
	intercept float64
	coefs     []float64
}

func (m *LinearModel) Name() string { return m.name }

func (m *LinearModel) Predict(features []float64) (float64, error) {
	if len(features) != len(m.coefs) {
		return 0, fmt.Errorf("model %s expects %d features, got %d", m.name, len(m.coefs), len(features))
	}
	score := m.intercept
	for i, c := range m.coefs {
		score += c * features[i]
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("model %s produced non-finite score", m.name)
	}
	return score, nil
}

// ForestModel averages the outputs of its regression trees (random forest).
type ForestModel struct {
	name  string
	trees []treeSpec
}

func (m *ForestModel) Name() string { return m.name }

func (m *ForestModel) Predict(features []float64) (float64, error) {
	if len(m.trees) == 0 {
		return 0, fmt.Errorf("model %s has no trees", m.name)
	}
	var sum float64
	for _, t := range m.trees {
		v, err := t.eval(features)
		if err != nil {
			return 0, fmt.Errorf("model %s: %w", m.name, err)
		}
		sum += v
	}
	return sum / float64(len(m.trees)), nil
}

// BoostedModel sums learning-rate-scaled tree outputs on top of a base
// score (gradient boosting).
type BoostedModel struct {
	name      string
	baseScore float64
	rate      float64
	trees     []treeSpec
}

func (m *BoostedModel) Name() string { return m.name }

func (m *BoostedModel) Predict(features []float64) (float64, error) {
	if len(m.trees) == 0 {
		return 0, fmt.Errorf("model %s has no trees", m.name)
	}
	score := m.baseScore
	for _, t := range m.trees {
		v, err := t.eval(features)
		if err != nil {
			return 0, fmt.Errorf("model %s: %w", m.name, err)
		}
		score += m.rate * v
	}
	return score, nil
}

// LoadModel deserializes one named model artifact from disk.
func LoadModel(name, path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw artifactFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}

	switch raw.Kind {
	case "linear":
		if len(raw.Coefficients) == 0 {
			return nil, fmt.Errorf("linear artifact %s has no coefficients", path)
		}
		return &LinearModel{name: name, intercept: raw.Intercept, coefs: raw.Coefficients}, nil
	case "forest":
		if err := validateTrees(raw.Trees); err != nil {
			return nil, fmt.Errorf("forest artifact %s: %w", path, err)
		}
		return &ForestModel{name: name, trees: raw.Trees}, nil
	case "boosted":
		if err := validateTrees(raw.Trees); err != nil {
			return nil, fmt.Errorf("boosted artifact %s: %w", path, err)
		}
		rate := raw.LearningRate
		if rate == 0 {
			rate = 1
		}
		return &BoostedModel{name: name, baseScore: raw.BaseScore, rate: rate, trees: raw.Trees}, nil
	default:
		return nil, fmt.Errorf("artifact %s has unknown kind %q", path, raw.Kind)
	}
}

func validateTrees(trees []treeSpec) error {
	if len(trees) == 0 {
		return fmt.Errorf("no trees")
	}
	for i, t := range trees {
		if err := t.validate(); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// Scaler is a standard scaler exported alongside the linear-family models.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// LoadScaler deserializes a scaler artifact from disk.
func LoadScaler(path string) (*Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scaler artifact %s: %w", path, err)
	}
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Scale) {
		return nil, fmt.Errorf("scaler artifact %s has mismatched mean/scale lengths", path)
	}
	return &s, nil
}

// Transform returns a scaled copy of the vector. A zero scale entry is
// treated as 1, matching how the training pipeline handles constant columns.
func (s *Scaler) Transform(features []float64) []float64 {
	out := make([]float64, len(features))
	for i, v := range features {
		if i >= len(s.Mean) {
			out[i] = v
			continue
		}
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out
}

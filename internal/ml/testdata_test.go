package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// mockMetrics implements MetricsInterface for tests.
type mockMetrics struct {
	mu           sync.Mutex
	predictions  int
	failures     int
	degraded     int
	fallbacks    int
	loadFailures int
	reloads      int
	latencies    int
	confidences  []float64
	modelsLoaded float64
}

func (m *mockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *mockMetrics) FailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *mockMetrics) DegradedInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded++
}

func (m *mockMetrics) FallbackInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}

func (m *mockMetrics) LoadFailureInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadFailures++
}

func (m *mockMetrics) ReloadInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
}

func (m *mockMetrics) LatencyObserve(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}

func (m *mockMetrics) ConfidenceObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidences = append(m.confidences, v)
}

func (m *mockMetrics) ModelsLoadedSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelsLoaded = v
}

func writeArtifact(t *testing.T, dir, file string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal artifact %s: %v", file, err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), data, 0o600); err != nil {
		t.Fatalf("write artifact %s: %v", file, err)
	}
}

// writeLinearArtifact writes a linear-kind model file for the named model.
func writeLinearArtifact(t *testing.T, dir, name string, intercept float64, coefs []float64) {
	t.Helper()
	writeArtifact(t, dir, modelFiles[name], artifactFile{
		Kind:         "linear",
		Intercept:    intercept,
		Coefficients: coefs,
	})
}

// constantLinear writes a linear model that always predicts the given value.
func constantLinear(t *testing.T, dir, name string, value float64) {
	t.Helper()
	writeLinearArtifact(t, dir, name, value, []float64{0, 0, 0, 0, 0, 0})
}

// stump returns a one-split tree on the given feature: <= threshold goes
// to the left leaf value, otherwise the right.
func stump(feature int, threshold, left, right float64) treeSpec {
	return treeSpec{
		Feature:   []int{feature, -1, -1},
		Threshold: []float64{threshold, 0, 0},
		Left:      []int{1, -1, -1},
		Right:     []int{2, -1, -1},
		Value:     []float64{0, left, right},
	}
}

func sampleRecord() StudentRecord {
	return StudentRecord{
		USN:  "1MV20CS001",
		Name: "Asha",
		Sem1: 70, Sem2: 72, Sem3: 75, Sem4: 78, Sem5: 80, Sem6: 82,
	}
}

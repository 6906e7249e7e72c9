package ml

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictWeightedCombination(t *testing.T) {
	dir := t.TempDir()
	constantLinear(t, dir, "linear", 80) // weight 0.15
	constantLinear(t, dir, "ridge", 90)  // weight 0.20

	engine := NewEngine(dir, &mockMetrics{})
	res := engine.Predict(sampleRecord())

	// (80*0.15 + 90*0.20) / 0.35
	assert.InDelta(t, 85.71, res.PredictedGrade, 1e-9)
	assert.Equal(t, "ensemble", res.ModelUsed)
	// popStdDev([80,90]) = 5 -> 1 - 5/20
	assert.InDelta(t, 0.75, res.Confidence, 1e-9)
	assert.Equal(t, map[string]float64{"linear": 80, "ridge": 90}, res.IndividualPredictions)
}

func TestPredictEffectiveWeightsRenormalize(t *testing.T) {
	dir := t.TempDir()
	constantLinear(t, dir, "linear", 100)
	constantLinear(t, dir, "ridge", 100)
	constantLinear(t, dir, "lasso", 100)

	engine := NewEngine(dir, nil)
	res := engine.Predict(sampleRecord())

	// If the surviving weights renormalize to 1, identical model outputs
	// pass through unchanged regardless of which subset loaded.
	assert.InDelta(t, 100, res.PredictedGrade, 1e-9)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9, "zero spread yields full confidence")
}

func TestPredictFailingModelExcluded(t *testing.T) {
	dir := t.TempDir()
	constantLinear(t, dir, "linear", 80)
	// Three-coefficient ridge model fails against six features at predict
	// time, after loading fine.
	writeLinearArtifact(t, dir, "ridge", 0, []float64{1, 1, 1})

	metrics := &mockMetrics{}
	engine := NewEngine(dir, metrics)
	res := engine.Predict(sampleRecord())

	assert.InDelta(t, 80, res.PredictedGrade, 1e-9)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9, "one surviving model pins confidence at 0.5")
	assert.Equal(t, 1, metrics.failures)
	assert.NotContains(t, res.IndividualPredictions, "ridge")
}

func TestPredictZeroModelsDegradesToRawMean(t *testing.T) {
	metrics := &mockMetrics{}
	engine := NewEngine(t.TempDir(), metrics)

	res := engine.Predict(sampleRecord())

	// mean(70,72,75,78,80,82) = 76.1666...
	assert.InDelta(t, 76.17, res.PredictedGrade, 1e-9)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	assert.Equal(t, "ensemble", res.ModelUsed, "the degenerate path is still a normal ensemble result")
	assert.Nil(t, res.IndividualPredictions)
	assert.Len(t, res.Factors, 3)
	assert.Equal(t, 1, metrics.degraded)
	assert.Equal(t, 1, metrics.predictions)
}

func TestPredictClampsToGradeRange(t *testing.T) {
	dir := t.TempDir()
	constantLinear(t, dir, "linear", 150)
	engine := NewEngine(dir, nil)
	assert.InDelta(t, 100, engine.Predict(sampleRecord()).PredictedGrade, 1e-9)

	constantLinear(t, dir, "linear", -30)
	engine.Reload()
	assert.InDelta(t, 0, engine.Predict(sampleRecord()).PredictedGrade, 1e-9)
}

func TestPredictEnsembleArtifactNeverInvoked(t *testing.T) {
	dir := t.TempDir()
	constantLinear(t, dir, "linear", 80)
	constantLinear(t, dir, ReservedEnsembleName, 10)

	engine := NewEngine(dir, nil)
	res := engine.Predict(sampleRecord())

	assert.Contains(t, engine.AvailableModels(), ReservedEnsembleName)
	assert.InDelta(t, 80, res.PredictedGrade, 1e-9, "reserved artifact must not enter the combination")
	assert.NotContains(t, res.IndividualPredictions, ReservedEnsembleName)
}

// TestPredictRidgeScalerAppliedToEveryModel pins the numeric effect of the
// ridge scaler being applied to the vector fed into all models, tree
// models included. If this test breaks, the change is deliberate.
func TestPredictRidgeScalerAppliedToEveryModel(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, scalerFiles["ridge"], Scaler{
		Mean:  []float64{60, 60, 60, 60, 60, 60},
		Scale: []float64{2, 2, 2, 2, 2, 2},
	})
	// Sum of the (scaled) vector.
	writeLinearArtifact(t, dir, "linear", 0, []float64{1, 1, 1, 1, 1, 1})
	// Stump on sem6: the raw value 82 would take the right leaf (99), the
	// scaled value 11 takes the left leaf (1).
	writeArtifact(t, dir, modelFiles["random_forest"], artifactFile{
		Kind:  "forest",
		Trees: []treeSpec{stump(5, 50, 1, 99)},
	})

	engine := NewEngine(dir, nil)
	res := engine.Predict(sampleRecord())

	require.Contains(t, res.IndividualPredictions, "random_forest")
	assert.InDelta(t, 1, res.IndividualPredictions["random_forest"], 1e-9,
		"tree model must see the ridge-scaled vector")
	// linear: (457 - 6*60) / 2 = 48.5; combined (48.5*0.15 + 1*0.25) / 0.40
	assert.InDelta(t, 48.5, res.IndividualPredictions["linear"], 1e-9)
	assert.InDelta(t, 18.81, res.PredictedGrade, 1e-9)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9, "wide spread floors confidence")
}

func TestPredictRawMeanIgnoresScaler(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, scalerFiles["ridge"], Scaler{
		Mean:  []float64{60, 60, 60, 60, 60, 60},
		Scale: []float64{2, 2, 2, 2, 2, 2},
	})

	engine := NewEngine(dir, nil)
	res := engine.Predict(sampleRecord())

	// The degenerate tier uses the unscaled vector.
	assert.InDelta(t, 76.17, res.PredictedGrade, 1e-9)
}

func TestPredictBoundsHoldAcrossInputDomain(t *testing.T) {
	dir := t.TempDir()
	constantLinear(t, dir, "linear", 80)
	writeLinearArtifact(t, dir, "ridge", -40, []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5})
	engine := NewEngine(dir, nil)

	for _, rec := range []StudentRecord{
		{},
		{Sem1: 100, Sem2: 100, Sem3: 100, Sem4: 100, Sem5: 100, Sem6: 100},
		{Sem1: 0, Sem6: 100},
		sampleRecord(),
	} {
		res := engine.Predict(rec)
		assert.GreaterOrEqual(t, res.PredictedGrade, 0.0)
		assert.LessOrEqual(t, res.PredictedGrade, 100.0)
		assert.GreaterOrEqual(t, res.Confidence, 0.5)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	}
}

// TestPredictDuringReloadSeesSingleGeneration hammers Predict while the
// registry flips between two artifact generations whose models agree
// internally but differ across generations. Any cross-generation mix
// would produce a grade outside the two pure outcomes.
func TestPredictDuringReloadSeesSingleGeneration(t *testing.T) {
	dir := t.TempDir()
	writeGeneration := func(grade float64) {
		constantLinear(t, dir, "linear", grade)
		constantLinear(t, dir, "ridge", grade)
	}
	writeGeneration(70)

	engine := NewEngine(dir, nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 64)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				res := engine.Predict(sampleRecord())
				if res.PredictedGrade != 70 && res.PredictedGrade != 40 {
					select {
					case errs <- fmt.Errorf("mixed-generation grade %v", res.PredictedGrade):
					default:
					}
					return
				}
			}
		}()
	}

	for i := 0; i < 25; i++ {
		if i%2 == 0 {
			writeGeneration(40)
		} else {
			writeGeneration(70)
		}
		engine.Reload()
	}
	close(stop)
	wg.Wait()

	select {
	case err := <-errs:
		t.Fatal(err)
	default:
	}
}

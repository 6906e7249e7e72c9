// Command generate-sample-data seeds a development environment: a set of
// random student records in the BoltDB store and a matching set of toy
// model artifacts so the ensemble engine has something to load.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"improvit/internal/storage"
)

func main() {
	var (
		dataPath = flag.String("data", "data", "Data directory path")
		modelDir = flag.String("models", "models", "Model artifact directory")
		count    = flag.Int("students", 50, "Number of students to generate")
		seed     = flag.Int64("seed", 42, "Random seed")
	)
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("Generating %d sample students...\n", *count)
	fmt.Printf("  Data Path: %s\n", *dataPath)
	fmt.Printf("  Model Dir: %s\n", *modelDir)

	if err := os.MkdirAll(*dataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	if err := generateStudents(store, rng, *count); err != nil {
		log.Fatalf("Failed to generate students: %v", err)
	}
	if err := generateArtifacts(*modelDir, rng); err != nil {
		log.Fatalf("Failed to generate model artifacts: %v", err)
	}

	fmt.Println("Sample data generated successfully!")
}

// generateStudents writes students whose semester scores follow a
// per-student baseline with a mild trend, so predictions look plausible.
func generateStudents(store *storage.Store, rng *rand.Rand, count int) error {
	for i := 0; i < count; i++ {
		base := 45 + rng.Float64()*45 // baseline ability
		trend := -2 + rng.Float64()*4 // per-semester drift
		st := storage.Student{
			USN:  fmt.Sprintf("1MV22CS%03d", i+1),
			Name: fmt.Sprintf("Student %03d", i+1),
		}
		sems := make([]float64, 6)
		for s := range sems {
			v := base + trend*float64(s) + rng.NormFloat64()*3
			sems[s] = clamp(v)
		}
		st.Sem1, st.Sem2, st.Sem3 = sems[0], sems[1], sems[2]
		st.Sem4, st.Sem5, st.Sem6 = sems[3], sems[4], sems[5]

		if err := store.PutStudent(st); err != nil {
			return err
		}
	}
	return nil
}

// generateArtifacts writes toy linear artifacts for every catalog model
// plus identity scalers. The coefficients weight recent semesters higher.
func generateArtifacts(dir string, rng *rand.Rand) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	linear := func(jitter float64) map[string]any {
		coefs := []float64{0.05, 0.08, 0.12, 0.18, 0.25, 0.32}
		for i := range coefs {
			coefs[i] += rng.NormFloat64() * jitter
		}
		return map[string]any{
			"kind":         "linear",
			"intercept":    1.5 + rng.NormFloat64()*jitter,
			"coefficients": coefs,
		}
	}

	artifacts := map[string]any{
		"linear_model.json":            linear(0.005),
		"ridge_model.json":             linear(0.005),
		"lasso_model.json":             linear(0.01),
		"random_forest_model.json":     linear(0.02),
		"gradient_boosting_model.json": linear(0.02),
		"linear_scaler.json":           identityScaler(),
		"ridge_scaler.json":            identityScaler(),
		"lasso_scaler.json":            identityScaler(),
	}
	for name, v := range artifacts {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func identityScaler() map[string]any {
	return map[string]any{
		"mean":  []float64{0, 0, 0, 0, 0, 0},
		"scale": []float64{1, 1, 1, 1, 1, 1},
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

package ml

// StudentRecord is the read-only slice of a student row that prediction
// consumes. Absent scores stay at zero, mirroring how the importer fills
// incomplete rows.
type StudentRecord struct {
	USN  string  `json:"usn"`
	Name string  `json:"name"`
	Sem1 float64 `json:"sem1"`
	Sem2 float64 `json:"sem2"`
	Sem3 float64 `json:"sem3"`
	Sem4 float64 `json:"sem4"`
	Sem5 float64 `json:"sem5"`
	Sem6 float64 `json:"sem6"`
}

// FeatureVector returns the six semester scores in fixed order.
func (r StudentRecord) FeatureVector() []float64 {
	return []float64{r.Sem1, r.Sem2, r.Sem3, r.Sem4, r.Sem5, r.Sem6}
}

// buildFeatures produces the vector fed to the models plus the raw vector
// kept for the degenerate-mean path.
//
// When the ridge scaler is present its transform is applied to the vector
// used for EVERY model, tree models included. The original training
// pipeline behaves this way and downstream results are calibrated against
// it, so the behavior is pinned by tests; changing it must be deliberate.
func buildFeatures(rec StudentRecord, reg *Registry) (scaled, raw []float64) {
	raw = rec.FeatureVector()
	scaled = raw
	if reg != nil {
		if s, ok := reg.Scaler("ridge"); ok {
			scaled = s.Transform(raw)
		}
	}
	return scaled, raw
}

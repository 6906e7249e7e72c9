package ml

// BaselineEstimate is the coarse historical-average-plus-trend formula
// used whenever the ensemble tier is entirely unreachable. It lives here
// once so every caller degrades identically; it needs no registry and
// works even if no load has ever happened.
func BaselineEstimate(rec StudentRecord) float64 {
	avg := mean(rec.FeatureVector())
	return clamp(avg+(rec.Sem6-rec.Sem1)/6, 0, 100)
}

// FallbackResult wraps the baseline estimate in a full Result with the
// fixed fallback confidence and rationale.
func FallbackResult(rec StudentRecord) Result {
	return Result{
		USN:            rec.USN,
		Name:           rec.Name,
		PredictedGrade: round2(BaselineEstimate(rec)),
		Confidence:     0.5,
		ModelUsed:      "fallback",
		Factors:        []string{"Based on historical average"},
	}
}

package ml

// Factors derives the rationale strings for a prediction. The rules are
// pure functions of the raw record; the prediction value is accepted for
// interface stability but no current rule consumes it. Order is fixed:
// trend, level, then the optional recent-delta factor.
func Factors(rec StudentRecord, prediction float64) []string {
	factors := make([]string, 0, 3)

	switch {
	case rec.Sem6 > rec.Sem1:
		factors = append(factors, "Consistent improvement trend")
	case rec.Sem6 < rec.Sem1:
		factors = append(factors, "Declining performance trend")
	default:
		factors = append(factors, "Stable performance")
	}

	switch {
	case rec.Sem6 >= 85:
		factors = append(factors, "Strong academic foundation")
	case rec.Sem6 >= 70:
		factors = append(factors, "Moderate performance level")
	default:
		factors = append(factors, "Needs improvement in core subjects")
	}

	if rec.Sem6 > rec.Sem5 {
		factors = append(factors, "Recent upward trend in Semester 6")
	} else if rec.Sem6 < rec.Sem5 {
		factors = append(factors, "Performance dropped in final semester")
	}

	return factors
}

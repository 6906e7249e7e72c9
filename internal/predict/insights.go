package predict

import (
	"context"
	"fmt"

	"improvit/internal/storage"
)

// Insights is the per-student trend and recommendation summary.
type Insights struct {
	USN                   string   `json:"usn"`
	Name                  string   `json:"name"`
	CurrentGrade          float64  `json:"current_grade"`
	PredictedNextSemester float64  `json:"predicted_next_semester"`
	Confidence            float64  `json:"confidence"`
	Trend                 string   `json:"trend"`
	Recommendations       []string `json:"recommendations"`
}

// Insights derives the trend label and study recommendations for one
// student from their semester history and last stored prediction.
func (s *Service) Insights(ctx context.Context, usn string) (Insights, error) {
	st, err := s.store.GetStudent(usn)
	if err != nil {
		return Insights{}, err
	}

	ins := Insights{
		USN:             st.USN,
		Name:            st.Name,
		CurrentGrade:    st.Sem6,
		Trend:           trendLabel(st),
		Recommendations: recommendations(st),
	}
	if st.PredictedSem7 != nil {
		ins.PredictedNextSemester = *st.PredictedSem7
	}
	if st.PredictionConfidence != nil {
		ins.Confidence = *st.PredictionConfidence
	}
	return ins, nil
}

func trendLabel(st storage.Student) string {
	improvement := st.Sem6 - st.Sem1
	switch {
	case improvement > 5:
		return "improving"
	case improvement < -5:
		return "declining"
	default:
		return "stable"
	}
}

func recommendations(st storage.Student) []string {
	var recs []string
	switch {
	case st.Sem6 < 60:
		recs = append(recs,
			"Focus on improving fundamental concepts",
			"Consider additional tutoring sessions")
	case st.Sem6 < 75:
		recs = append(recs,
			"Practice more problem-solving exercises",
			"Review weak areas identified in assessments")
	case st.Sem6 >= 85:
		recs = append(recs,
			"Challenge yourself with advanced topics",
			"Consider mentoring other students")
	default:
		recs = append(recs,
			"Maintain consistent study schedule",
			"Focus on exam preparation strategies")
	}

	sems := []float64{st.Sem1, st.Sem2, st.Sem3, st.Sem4, st.Sem5, st.Sem6}
	weakest, lowest := 0, sems[0]
	for i, v := range sems[1:] {
		if v < lowest {
			weakest, lowest = i+1, v
		}
	}
	if lowest < 60 {
		recs = append(recs, fmt.Sprintf("Focus on Semester %d subjects", weakest+1))
	}
	return recs
}

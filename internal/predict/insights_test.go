package predict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"improvit/internal/storage"
)

func TestInsightsTrendLabels(t *testing.T) {
	cases := []struct {
		name string
		sem1 float64
		sem6 float64
		want string
	}{
		{"improving", 70, 80, "improving"},
		{"declining", 80, 70, "declining"},
		{"stable up", 70, 75, "stable"},
		{"stable down", 75, 70, "stable"},
		{"flat", 75, 75, "stable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := testStudent("A1")
			st.Sem1, st.Sem6 = tc.sem1, tc.sem6
			assert.Equal(t, tc.want, trendLabel(st))
		})
	}
}

func TestRecommendationBands(t *testing.T) {
	cases := []struct {
		name string
		sem6 float64
		want string
	}{
		{"struggling", 55, "Focus on improving fundamental concepts"},
		{"below average", 70, "Practice more problem-solving exercises"},
		{"excellent", 90, "Challenge yourself with advanced topics"},
		{"steady", 80, "Maintain consistent study schedule"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := testStudent("A1")
			st.Sem6 = tc.sem6
			recs := recommendations(st)
			require.NotEmpty(t, recs)
			assert.Equal(t, tc.want, recs[0])
		})
	}
}

func TestRecommendationsWeakestSemester(t *testing.T) {
	st := testStudent("A1")
	st.Sem3 = 52

	recs := recommendations(st)
	assert.Contains(t, recs, "Focus on Semester 3 subjects")
}

func TestRecommendationsNoWeakSemester(t *testing.T) {
	recs := recommendations(testStudent("A1"))
	for _, r := range recs {
		assert.NotContains(t, r, "subjects")
	}
}

func TestInsightsUsesStoredPrediction(t *testing.T) {
	st := testStudent("A1")
	grade, conf := 84.5, 0.82
	st.PredictedSem7 = &grade
	st.PredictionConfidence = &conf
	svc := localService(t, newMemStore(st), nil, nil)

	ins, err := svc.Insights(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, "A1", ins.USN)
	assert.Equal(t, "Asha", ins.Name)
	assert.InDelta(t, 82, ins.CurrentGrade, 1e-9)
	assert.InDelta(t, 84.5, ins.PredictedNextSemester, 1e-9)
	assert.InDelta(t, 0.82, ins.Confidence, 1e-9)
	assert.Equal(t, "improving", ins.Trend)
}

func TestInsightsWithoutPrediction(t *testing.T) {
	svc := localService(t, newMemStore(testStudent("A1")), nil, nil)

	ins, err := svc.Insights(context.Background(), "A1")
	require.NoError(t, err)
	assert.Zero(t, ins.PredictedNextSemester)
	assert.Zero(t, ins.Confidence)
}

func TestInsightsUnknownStudent(t *testing.T) {
	svc := localService(t, newMemStore(), nil, nil)

	_, err := svc.Insights(context.Background(), "NOPE")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

package storage

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetStudent(t *testing.T) {
	s := newTestStore(t)

	st := Student{USN: "1MV20CS001", Name: "Asha", Sem1: 70, Sem6: 82}
	require.NoError(t, s.PutStudent(st))

	got, err := s.GetStudent("1MV20CS001")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)
	assert.Equal(t, 82.0, got.Sem6)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Nil(t, got.PredictedSem7)
}

func TestGetStudentNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetStudent("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutStudentPreservesCreatedAt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutStudent(Student{USN: "u1", Name: "first"}))

	first, err := s.GetStudent("u1")
	require.NoError(t, err)

	require.NoError(t, s.PutStudent(Student{USN: "u1", Name: "second"}))
	second, err := s.GetStudent("u1")
	require.NoError(t, err)

	assert.Equal(t, "second", second.Name)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestPutStudentRequiresUSN(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.PutStudent(Student{Name: "no usn"}))
}

func TestListStudentsSortedByUSN(t *testing.T) {
	s := newTestStore(t)
	for _, usn := range []string{"c3", "a1", "b2"} {
		require.NoError(t, s.PutStudent(Student{USN: usn}))
	}

	students, err := s.ListStudents()
	require.NoError(t, err)
	require.Len(t, students, 3)
	assert.Equal(t, "a1", students[0].USN)
	assert.Equal(t, "b2", students[1].USN)
	assert.Equal(t, "c3", students[2].USN)
}

func TestDeleteStudent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutStudent(Student{USN: "u1"}))

	require.NoError(t, s.DeleteStudent("u1"))
	_, err := s.GetStudent("u1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteStudent("u1"), ErrNotFound)
}

func TestSavePrediction(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutStudent(Student{USN: "u1", Sem6: 82}))

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SavePrediction("u1", 78.17, 0.5, at))

	got, err := s.GetStudent("u1")
	require.NoError(t, err)
	require.NotNil(t, got.PredictedSem7)
	assert.Equal(t, 78.17, *got.PredictedSem7)
	require.NotNil(t, got.PredictionConfidence)
	assert.Equal(t, 0.5, *got.PredictionConfidence)
	require.NotNil(t, got.LastPredictionAt)
	assert.Equal(t, at, *got.LastPredictionAt)

	assert.ErrorIs(t, s.SavePrediction("missing", 1, 1, at), ErrNotFound)
}

func TestImportCSV(t *testing.T) {
	s := newTestStore(t)

	body := strings.Join([]string{
		"usn,name,sem1,sem2,sem3,sem4,sem5,sem6",
		"1MV20CS001,Asha,70,72,75,78,80,82",
		"1MV20CS002,Ravi,65,64,not-a-number,60,61,62", // dropped
		"1MV20CS003,Mina,90,91,92,93,94,95",
		"1MV20CS004,Out,70,70,70,70,70,170", // score out of range, dropped
	}, "\n")

	n, err := s.ImportCSV(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	students, err := s.ListStudents()
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "1MV20CS001", students[0].USN)
	assert.Equal(t, "1MV20CS003", students[1].USN)
}

func TestExportCSVRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutStudent(Student{USN: "u1", Name: "Asha", Sem1: 70.5, Sem6: 82}))

	var buf bytes.Buffer
	require.NoError(t, s.ExportCSV(&buf))

	other := newTestStore(t)
	n, err := other.ImportCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := other.GetStudent("u1")
	require.NoError(t, err)
	assert.Equal(t, 70.5, got.Sem1)
	assert.Equal(t, "Asha", got.Name)
}

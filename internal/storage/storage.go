// Package storage provides persistent student records for the prediction
// service. It uses BoltDB as the underlying engine and stores one JSON
// document per student, keyed by USN, including the write-back fields the
// prediction pipeline maintains.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const studentsBucket = "students"

// ErrNotFound is returned when a USN does not resolve to a student.
var ErrNotFound = errors.New("student not found")

// Student is the persisted student row. Prediction write-back fields are
// pointers so an un-predicted student serializes without them.
type Student struct {
	USN  string  `json:"usn"`
	Name string  `json:"name"`
	Sem1 float64 `json:"sem1"`
	Sem2 float64 `json:"sem2"`
	Sem3 float64 `json:"sem3"`
	Sem4 float64 `json:"sem4"`
	Sem5 float64 `json:"sem5"`
	Sem6 float64 `json:"sem6"`

	PredictedSem7        *float64   `json:"predicted_sem7,omitempty"`
	PredictionConfidence *float64   `json:"prediction_confidence,omitempty"`
	LastPredictionAt     *time.Time `json:"last_prediction_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store provides thread-safe access to the student database.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the student database under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "improvit.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(studentsBucket)); err != nil {
			return fmt.Errorf("create students bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutStudent inserts or replaces a student, preserving CreatedAt across
// updates.
func (s *Store) PutStudent(st Student) error {
	if st.USN == "" {
		return fmt.Errorf("student USN cannot be empty")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(studentsBucket))

		now := time.Now().UTC()
		if existing := b.Get([]byte(st.USN)); existing != nil {
			var prev Student
			if err := json.Unmarshal(existing, &prev); err == nil {
				st.CreatedAt = prev.CreatedAt
			}
		}
		if st.CreatedAt.IsZero() {
			st.CreatedAt = now
		}
		st.UpdatedAt = now

		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal student: %w", err)
		}
		return b.Put([]byte(st.USN), data)
	})
}

// GetStudent resolves a USN, returning ErrNotFound for unknown ones.
func (s *Store) GetStudent(usn string) (Student, error) {
	var st Student
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(studentsBucket)).Get([]byte(usn))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &st)
	})
	return st, err
}

// ListStudents returns all students sorted by USN.
func (s *Store) ListStudents() ([]Student, error) {
	var students []Student
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(studentsBucket)).ForEach(func(_, v []byte) error {
			var st Student
			if err := json.Unmarshal(v, &st); err != nil {
				return nil // skip malformed rows
			}
			students = append(students, st)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(students, func(i, j int) bool { return students[i].USN < students[j].USN })
	return students, nil
}

// DeleteStudent removes a student; deleting an unknown USN returns
// ErrNotFound.
func (s *Store) DeleteStudent(usn string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(studentsBucket))
		if b.Get([]byte(usn)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(usn))
	})
}

// SavePrediction writes the prediction outcome back onto the student row.
func (s *Store) SavePrediction(usn string, grade, confidence float64, at time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(studentsBucket))
		data := b.Get([]byte(usn))
		if data == nil {
			return ErrNotFound
		}

		var st Student
		if err := json.Unmarshal(data, &st); err != nil {
			return fmt.Errorf("unmarshal student: %w", err)
		}

		at = at.UTC()
		st.PredictedSem7 = &grade
		st.PredictionConfidence = &confidence
		st.LastPredictionAt = &at
		st.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal student: %w", err)
		}
		return b.Put([]byte(usn), out)
	})
}

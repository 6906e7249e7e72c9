package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"
)

var csvHeader = []string{"usn", "name", "sem1", "sem2", "sem3", "sem4", "sem5", "sem6"}

// ImportCSV loads students from CSV rows of usn,name,sem1..sem6. A header
// row matching the expected column names is skipped. Malformed rows are
// logged and dropped; the import continues. Returns the number of rows
// stored.
func (s *Store) ImportCSV(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)

	imported := 0
	for line := 1; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping malformed CSV row")
			continue
		}
		if line == 1 && row[0] == csvHeader[0] {
			continue
		}

		st, err := studentFromRow(row)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping invalid CSV row")
			continue
		}
		if err := s.PutStudent(st); err != nil {
			return imported, fmt.Errorf("store row %d: %w", line, err)
		}
		imported++
	}
	return imported, nil
}

// ExportCSV writes all students as CSV with a header row.
func (s *Store) ExportCSV(w io.Writer) error {
	students, err := s.ListStudents()
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, st := range students {
		row := []string{
			st.USN,
			st.Name,
			formatScore(st.Sem1),
			formatScore(st.Sem2),
			formatScore(st.Sem3),
			formatScore(st.Sem4),
			formatScore(st.Sem5),
			formatScore(st.Sem6),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func studentFromRow(row []string) (Student, error) {
	if row[0] == "" {
		return Student{}, fmt.Errorf("empty USN")
	}
	scores := make([]float64, 6)
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseFloat(row[i+2], 64)
		if err != nil {
			return Student{}, fmt.Errorf("sem%d: %w", i+1, err)
		}
		if v < 0 || v > 100 {
			return Student{}, fmt.Errorf("sem%d score %v outside [0,100]", i+1, v)
		}
		scores[i] = v
	}
	return Student{
		USN:  row[0],
		Name: row[1],
		Sem1: scores[0], Sem2: scores[1], Sem3: scores[2],
		Sem4: scores[3], Sem5: scores[4], Sem6: scores[5],
	}, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

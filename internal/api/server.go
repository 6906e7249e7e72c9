package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"improvit/internal/common"
	"improvit/internal/predict"
	"improvit/internal/storage"
)

const maxBatchSize = 100

// Server serves the prediction and student-management API.
type Server struct {
	svc    *predict.Service
	store  *storage.Store
	hub    *EventHub
	server *http.Server
}

// NewServer wires the routes. metricsHandler serves GET /metrics and is
// usually promhttp for the process registry.
func NewServer(port int, svc *predict.Service, store *storage.Store, hub *EventHub, metricsHandler http.Handler) *Server {
	s := &Server{svc: svc, store: store, hub: hub}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.routes(metricsHandler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) routes(metricsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()

	p := r.PathPrefix(common.APIPrefix + "/predictions").Subrouter()
	p.HandleFunc("/single", s.handlePredictSingle).Methods("POST")
	p.HandleFunc("/batch", s.handlePredictBatch).Methods("POST")
	p.HandleFunc("/retrain", s.handleRetrain).Methods("POST")
	p.HandleFunc("/{usn}/insights", s.handleInsights).Methods("GET")

	// Static student routes are registered before the {usn} matcher.
	st := r.PathPrefix(common.APIPrefix + "/students").Subrouter()
	st.HandleFunc("/import", s.handleImportCSV).Methods("POST")
	st.HandleFunc("/export/csv", s.handleExportCSV).Methods("GET")
	st.HandleFunc("", s.handleListStudents).Methods("GET")
	st.HandleFunc("", s.handleCreateStudent).Methods("POST")
	st.HandleFunc("/{usn}", s.handleGetStudent).Methods("GET")
	st.HandleFunc("/{usn}", s.handleUpdateStudent).Methods("PUT")
	st.HandleFunc("/{usn}", s.handleDeleteStudent).Methods("DELETE")

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods("GET")
	}
	if s.hub != nil {
		r.HandleFunc("/ws/events", s.hub.HandleWS).Methods("GET")
	}
	return r
}

// Start runs the server until Stop is called.
func (s *Server) Start() error {
	log.Info().Str("address", s.server.Addr).Msg("starting api server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully and closes the event hub.
func (s *Server) Stop(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.server.Shutdown(ctx)
}

type predictRequest struct {
	USN string `json:"usn"`
}

type batchRequest struct {
	USNs []string `json:"usns"`
}

type batchResponse struct {
	Predictions []any     `json:"predictions"`
	Total       int       `json:"total"`
	Timestamp   time.Time `json:"timestamp"`
}

func (s *Server) handlePredictSingle(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.USN == "" {
		respondError(w, http.StatusBadRequest, "usn is required")
		return
	}

	res, err := s.svc.Predict(r.Context(), req.USN)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "student not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "prediction failed")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.USNs) == 0 {
		respondError(w, http.StatusBadRequest, "usns is required")
		return
	}
	if len(req.USNs) > maxBatchSize {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("batch size exceeds %d", maxBatchSize))
		return
	}

	results := s.svc.PredictBatch(r.Context(), req.USNs)
	preds := make([]any, len(results))
	for i, res := range results {
		preds[i] = res
	}
	respondJSON(w, http.StatusOK, batchResponse{
		Predictions: preds,
		Total:       len(results),
		Timestamp:   time.Now().UTC(),
	})
}

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reload(r.Context()); err != nil {
		log.Warn().Err(err).Msg("retrain request failed")
		respondJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "scoring service unavailable for retraining",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Models retrained successfully",
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	usn := mux.Vars(r)["usn"]
	ins, err := s.svc.Insights(r.Context(), usn)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "student not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "insights failed")
		return
	}
	respondJSON(w, http.StatusOK, ins)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.Health(r.Context()))
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var st storage.Student
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateStudent(st); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.store.GetStudent(st.USN); err == nil {
		respondError(w, http.StatusConflict, "student already exists")
		return
	}
	if err := s.store.PutStudent(st); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save student")
		return
	}
	created, err := s.store.GetStudent(st.USN)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.store.ListStudents()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}
	respondJSON(w, http.StatusOK, students)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetStudent(mux.Vars(r)["usn"])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "student not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	usn := mux.Vars(r)["usn"]
	if _, err := s.store.GetStudent(usn); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "student not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}

	var st storage.Student
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st.USN = usn // the path owns the identity
	if err := validateStudent(st); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.PutStudent(st); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save student")
		return
	}
	updated, err := s.store.GetStudent(usn)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteStudent(mux.Vars(r)["usn"]); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "student not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete student")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.ImportCSV(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid csv payload")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"imported": n})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="students.csv"`)
	if err := s.store.ExportCSV(w); err != nil {
		log.Error().Err(err).Msg("csv export failed")
	}
}

func validateStudent(st storage.Student) error {
	if st.USN == "" {
		return errors.New("usn is required")
	}
	if st.Name == "" {
		return errors.New("name is required")
	}
	for i, v := range []float64{st.Sem1, st.Sem2, st.Sem3, st.Sem4, st.Sem5, st.Sem6} {
		if v < 0 || v > 100 {
			return fmt.Errorf("sem%d must be between 0 and 100", i+1)
		}
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// Package predict orchestrates the prediction pipeline: it resolves
// students from the store, routes records through the local ensemble
// engine or a remote scoring service, applies the fallback tier when the
// scoring path is unreachable, and writes outcomes back to the store.
package predict

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"improvit/internal/ml"
	"improvit/internal/remote"
	"improvit/internal/storage"
)

// StudentStore is the persistence surface the pipeline consumes.
type StudentStore interface {
	GetStudent(usn string) (storage.Student, error)
	SavePrediction(usn string, grade, confidence float64, at time.Time) error
}

// RemoteScorer is the optional external scoring tier. Any error from it
// means the ensemble tier is unreachable and the fallback formula applies.
type RemoteScorer interface {
	Predict(ctx context.Context, rec ml.StudentRecord) (ml.Result, error)
	PredictBatch(ctx context.Context, recs []ml.StudentRecord) ([]ml.Result, error)
	Retrain(ctx context.Context) error
	Health(ctx context.Context) (remote.HealthStatus, error)
}

// Publisher receives completed prediction results for live consumers.
type Publisher interface {
	Publish(v any)
}

// MetricsRecorder is the slice of metrics the service itself reports.
type MetricsRecorder interface {
	FallbackInc()
	BatchSizeObserve(float64)
}

// Health reports scoring tier readiness for the health endpoint.
type Health struct {
	Status          string   `json:"status"`
	IsLoaded        bool     `json:"is_loaded"`
	AvailableModels []string `json:"available_models"`
}

// Service is the prediction orchestrator. All fields are set at
// construction; it is safe for concurrent use.
type Service struct {
	store       StudentStore
	engine      *ml.Engine
	remote      RemoteScorer // nil means score locally
	events      Publisher    // nil disables event publishing
	metrics     MetricsRecorder
	concurrency int
}

func New(store StudentStore, engine *ml.Engine, remote RemoteScorer, events Publisher, metrics MetricsRecorder, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		store:       store,
		engine:      engine,
		remote:      remote,
		events:      events,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// Predict resolves one student and runs the single-item pipeline. The
// only caller-visible error is an unresolved USN; scoring itself always
// produces a result in some tier.
func (s *Service) Predict(ctx context.Context, usn string) (ml.Result, error) {
	st, err := s.store.GetStudent(usn)
	if err != nil {
		return ml.Result{}, err
	}

	res := s.score(ctx, recordFrom(st))
	s.finish(res)
	return res, nil
}

// PredictBatch runs the single-item pipeline per resolved USN.
// Unresolved identifiers are dropped without aborting the batch, and the
// output preserves the relative input order of the resolved ones.
func (s *Service) PredictBatch(ctx context.Context, usns []string) []ml.Result {
	recs := make([]ml.StudentRecord, 0, len(usns))
	for _, usn := range usns {
		st, err := s.store.GetStudent(usn)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				log.Warn().Err(err).Str("usn", usn).Msg("student lookup failed, dropping from batch")
			} else {
				log.Debug().Str("usn", usn).Msg("unknown usn dropped from batch")
			}
			continue
		}
		recs = append(recs, recordFrom(st))
	}
	if s.metrics != nil {
		s.metrics.BatchSizeObserve(float64(len(recs)))
	}
	if len(recs) == 0 {
		return []ml.Result{}
	}

	var results []ml.Result
	if s.remote != nil {
		results = s.scoreBatchRemote(ctx, recs)
	} else {
		results = s.scoreBatchLocal(ctx, recs)
	}

	for _, res := range results {
		s.finish(res)
	}
	return results
}

// Reload rebuilds the local model registry and publishes it atomically;
// in remote mode the retrain request is forwarded as well.
func (s *Service) Reload(ctx context.Context) error {
	s.engine.Reload()
	if s.remote != nil {
		return s.remote.Retrain(ctx)
	}
	return nil
}

// Health reports readiness of whichever scoring tier is active.
func (s *Service) Health(ctx context.Context) Health {
	if s.remote != nil {
		hs, err := s.remote.Health(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("scoring tier health check failed")
			return Health{Status: "unreachable"}
		}
		return Health{
			Status:          hs.Status,
			IsLoaded:        hs.ModelsLoaded,
			AvailableModels: hs.AvailableModels,
		}
	}
	return Health{
		Status:          "healthy",
		IsLoaded:        s.engine.Ready(),
		AvailableModels: s.engine.AvailableModels(),
	}
}

// score runs one record through the active scoring tier, degrading to
// the shared baseline formula when the remote tier is unreachable.
func (s *Service) score(ctx context.Context, rec ml.StudentRecord) ml.Result {
	if s.remote == nil {
		return s.engine.Predict(rec)
	}

	res, err := s.remote.Predict(ctx, rec)
	if err != nil {
		log.Warn().Err(err).Str("usn", rec.USN).Msg("scoring tier unreachable, using fallback formula")
		if s.metrics != nil {
			s.metrics.FallbackInc()
		}
		return ml.FallbackResult(rec)
	}
	return res
}

func (s *Service) scoreBatchLocal(ctx context.Context, recs []ml.StudentRecord) []ml.Result {
	results := make([]ml.Result, len(recs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			results[i] = s.score(ctx, rec)
			return nil
		})
	}
	// Item pipelines never return errors; Wait only joins the goroutines.
	_ = g.Wait()
	return results
}

func (s *Service) scoreBatchRemote(ctx context.Context, recs []ml.StudentRecord) []ml.Result {
	results, err := s.remote.PredictBatch(ctx, recs)
	if err == nil && len(results) == len(recs) {
		return results
	}
	if err != nil {
		log.Warn().Err(err).Int("students", len(recs)).Msg("scoring tier unreachable for batch, using fallback formula")
	} else {
		log.Warn().Int("want", len(recs)).Int("got", len(results)).Msg("remote batch result incomplete, using fallback formula")
	}
	if s.metrics != nil {
		s.metrics.FallbackInc()
	}
	out := make([]ml.Result, len(recs))
	for i, rec := range recs {
		out[i] = ml.FallbackResult(rec)
	}
	return out
}

// finish persists the outcome and publishes it. Write-back failures are
// logged, never surfaced: the prediction already exists.
func (s *Service) finish(res ml.Result) {
	if err := s.store.SavePrediction(res.USN, res.PredictedGrade, res.Confidence, time.Now()); err != nil {
		log.Warn().Err(err).Str("usn", res.USN).Msg("prediction write-back failed")
	}
	if s.events != nil {
		s.events.Publish(res)
	}
}

func recordFrom(st storage.Student) ml.StudentRecord {
	return ml.StudentRecord{
		USN:  st.USN,
		Name: st.Name,
		Sem1: st.Sem1, Sem2: st.Sem2, Sem3: st.Sem3,
		Sem4: st.Sem4, Sem5: st.Sem5, Sem6: st.Sem6,
	}
}

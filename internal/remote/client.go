// Package remote implements the HTTP client for an external scoring
// service exposing the same predict/batch/retrain/health surface as the
// local engine. Any transport or decode failure is the caller's signal
// that the ensemble tier is unreachable and the fallback tier applies.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"improvit/internal/ml"
)

type Client struct {
	rest *resty.Client
	base string
}

func New(baseURL string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second)
	}
	return &Client{rest: r, base: baseURL}
}

type batchRequest struct {
	Students []ml.StudentRecord `json:"students"`
}

type batchResponse struct {
	Predictions []ml.Result `json:"predictions"`
	Total       int         `json:"total"`
}

type retrainResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthStatus mirrors the scoring service health payload.
type HealthStatus struct {
	Status          string   `json:"status"`
	ModelsLoaded    bool     `json:"models_loaded"`
	AvailableModels []string `json:"available_models"`
}

// Predict scores a single student on the remote service.
func (c *Client) Predict(ctx context.Context, rec ml.StudentRecord) (ml.Result, error) {
	var res ml.Result
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(rec).
		SetResult(&res).
		ForceContentType("application/json").
		Post(c.base + "/predict")
	if err != nil {
		return ml.Result{}, fmt.Errorf("remote predict: %w", err)
	}
	if resp.IsError() {
		return ml.Result{}, fmt.Errorf("remote predict: status %d", resp.StatusCode())
	}
	return res, nil
}

// PredictBatch scores a resolved batch in one remote call. The remote
// service preserves input order.
func (c *Client) PredictBatch(ctx context.Context, recs []ml.StudentRecord) ([]ml.Result, error) {
	var res batchResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(batchRequest{Students: recs}).
		SetResult(&res).
		ForceContentType("application/json").
		Post(c.base + "/predict/batch")
	if err != nil {
		return nil, fmt.Errorf("remote batch predict: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("remote batch predict: status %d", resp.StatusCode())
	}
	return res.Predictions, nil
}

// Retrain asks the remote service to reload its model artifacts.
func (c *Client) Retrain(ctx context.Context) error {
	var res retrainResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]any{}).
		SetResult(&res).
		ForceContentType("application/json").
		Post(c.base + "/retrain")
	if err != nil {
		return fmt.Errorf("remote retrain: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("remote retrain: status %d", resp.StatusCode())
	}
	if !res.Success {
		return fmt.Errorf("remote retrain rejected: %s", res.Message)
	}
	return nil
}

// Health fetches the remote service health payload.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var res HealthStatus
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&res).
		ForceContentType("application/json").
		Get(c.base + "/health")
	if err != nil {
		return HealthStatus{}, fmt.Errorf("remote health: %w", err)
	}
	if resp.IsError() {
		return HealthStatus{}, fmt.Errorf("remote health: status %d", resp.StatusCode())
	}
	return res, nil
}

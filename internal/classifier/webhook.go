package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// DefaultTimeout bounds a single webhook call.
const DefaultTimeout = 15 * time.Second

const (
	pathClassify      = "/categorize-transaction"
	pathClassifyBatch = "/categorize-transactions-batch"
	pathLearning      = "/learn-categorization"
)

// Webhook is a Classifier that calls the workflow automation service over
// HTTP. Calls are wrapped in a circuit breaker so that a flapping service
// degrades to fast misses instead of slowing down every transaction create.
type Webhook struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewWebhook returns a Webhook for the service at baseURL. A zero timeout
// means DefaultTimeout.
func NewWebhook(baseURL string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Webhook{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "classifier",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
		}),
	}
}

// post sends the payload and decodes the response into target.
func (w *Webhook) post(ctx context.Context, path string, payload any, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = w.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := w.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode > 299 {
			return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, res.StatusCode)
		}

		if target == nil {
			_, _ = io.Copy(io.Discard, res.Body)
			return nil, nil
		}

		err = json.NewDecoder(res.Body).Decode(target)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
		}

		return nil, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}

	return nil
}

func (w *Webhook) Classify(ctx context.Context, req Request) (*Suggestion, error) {
	var suggestion Suggestion

	err := w.post(ctx, pathClassify, req, &suggestion)
	if err != nil {
		return nil, err
	}

	if suggestion.CategoryID == nil {
		return nil, nil
	}

	log.Debug().
		Str("transaction-id", req.TransactionID).
		Str("category-id", suggestion.CategoryID.String()).
		Float64("confidence", suggestion.Confidence).
		Msg("classifier suggestion")

	return &suggestion, nil
}

type batchRequest struct {
	Transactions []Request `json:"transactions"`
}

type batchResponse struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	Results []Result `json:"results"`
}

func (w *Webhook) ClassifyBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	var response batchResponse
	err := w.post(ctx, pathClassifyBatch, batchRequest{Transactions: reqs}, &response)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("requested", len(reqs)).
		Int("returned", len(response.Results)).
		Msg("classifier batch response")

	return response.Results, nil
}

func (w *Webhook) NotifyLearning(ctx context.Context, event LearningEvent) error {
	return w.post(ctx, pathLearning, event, nil)
}

// Package classifier talks to the external workflow automation service that
// suggests categories for transactions.
//
// The service is advisory. Callers have to treat every error from this
// package as "no suggestion available" and must never fail the operation
// that triggered the classification.
package classifier

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when the categorization service cannot be
// reached, times out, or answers with an unexpected status or payload.
var ErrUnavailable = errors.New("categorization service unavailable")

// Request contains the transaction fields the categorization service
// needs. The transaction ID is used to correlate batch results, the service
// may reorder or drop entries.
type Request struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Description   string          `json:"description"`
	Merchant      string          `json:"merchant"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
}

// Suggestion is a category suggestion from the service. A nil CategoryID
// means the service had no suggestion for the transaction.
type Suggestion struct {
	CategoryID   *uuid.UUID `json:"category_id"`
	CategoryName string     `json:"category_name"`
	Confidence   float64    `json:"confidence"`
	Source       string     `json:"source"`
}

// Result is a single entry of a batch response.
type Result struct {
	TransactionID string `json:"transaction_id"`
	Suggestion
}

// LearningEvent is the telemetry payload sent when a user correction
// creates or updates a mapping. Delivery is best effort.
type LearningEvent struct {
	UserID          string  `json:"user_id"`
	Pattern         string  `json:"pattern"`
	CategoryID      string  `json:"category_id"`
	CategoryName    string  `json:"category_name"`
	TransactionType string  `json:"transaction_type"`
	MatchType       string  `json:"match_type"`
	Confidence      float64 `json:"confidence"`
}

// Classifier is the gateway to the external categorization service.
type Classifier interface {
	// Classify suggests a category for a single transaction. A nil
	// suggestion without an error means the service had nothing to offer.
	Classify(ctx context.Context, req Request) (*Suggestion, error)

	// ClassifyBatch suggests categories for multiple transactions. Results
	// are correlated by transaction ID, not by position.
	ClassifyBatch(ctx context.Context, reqs []Request) ([]Result, error)

	// NotifyLearning reports a learned correction to the service.
	NotifyLearning(ctx context.Context, event LearningEvent) error
}

// None is a Classifier for deployments without a categorization service.
// It never suggests anything.
type None struct{}

func (None) Classify(context.Context, Request) (*Suggestion, error) {
	return nil, nil
}

func (None) ClassifyBatch(context.Context, []Request) ([]Result, error) {
	return nil, nil
}

func (None) NotifyLearning(context.Context, LearningEvent) error {
	return nil
}

// Package categorizer implements the merchant categorization pipeline:
// learned-mapping lookup, fallback to the external classifier, and the
// feedback loop that turns user corrections into new mappings.
package categorizer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/money-magnet/backend/internal/classifier"
	"github.com/money-magnet/backend/internal/models"
	"github.com/money-magnet/backend/internal/pattern"
)

// Config contains the tunable policy values of the pipeline. The defaults
// match the behavior of the workflow automation service.
type Config struct {
	// Confidence recorded for AI suggestions that do not carry one.
	AIDefaultConfidence float64

	// Maximum number of transaction updates per persistence batch.
	SweepChunkSize int
}

func (c Config) withDefaults() Config {
	if c.AIDefaultConfidence == 0 {
		c.AIDefaultConfidence = 0.8
	}

	if c.SweepChunkSize == 0 {
		c.SweepChunkSize = 500
	}

	return c
}

// Engine runs the categorization pipeline. Construct it once at process
// start and share it between handlers, it holds no per-request state.
type Engine struct {
	db         *gorm.DB
	classifier classifier.Classifier
	cfg        Config
}

// New returns an Engine using the database handle and classifier gateway.
func New(db *gorm.DB, c classifier.Classifier, cfg Config) *Engine {
	return &Engine{
		db:         db,
		classifier: c,
		cfg:        cfg.withDefaults(),
	}
}

// Categorize runs the categorization pipeline for a single transaction.
//
// Transactions that already have a category are left alone. A learned
// mapping for the transaction's pattern wins over the classifier; only on a
// mapping miss is the external service consulted. Classifier failures are
// logged and degrade to "uncategorized", they never fail the operation that
// created the transaction.
func (e *Engine) Categorize(ctx context.Context, transaction *models.Transaction) error {
	// Already categorized, nothing to do
	if transaction.CategoryID != nil {
		return nil
	}

	// Transfers have no category semantics, mappings only exist for
	// income and expense
	if transaction.Type == models.TypeTransfer {
		return nil
	}

	key := pattern.Derive(transaction.Merchant, transaction.Description)
	if key != "" {
		mapping, err := models.FindMapping(e.db, transaction.UserID, key, transaction.Type)
		if err != nil {
			return err
		}

		if mapping != nil {
			log.Debug().
				Str("transaction-id", transaction.ID.String()).
				Str("pattern", key).
				Str("category-id", mapping.CategoryID.String()).
				Msg("categorizer: mapping hit")

			return e.apply(transaction, mapping.CategoryID, models.SourceLearned, mapping.Confidence)
		}

		log.Debug().
			Str("transaction-id", transaction.ID.String()).
			Str("pattern", key).
			Msg("categorizer: mapping miss")
	}

	suggestion, err := e.classifier.Classify(ctx, e.request(*transaction))
	if err != nil {
		log.Warn().
			Err(err).
			Str("transaction-id", transaction.ID.String()).
			Msg("categorizer: classifier unavailable, transaction stays uncategorized")
		return nil
	}

	if suggestion == nil || suggestion.CategoryID == nil {
		return nil
	}

	return e.applySuggestion(transaction, *suggestion.CategoryID, suggestion.Confidence)
}

// CategorizeBatch runs the pipeline for multiple transactions with a single
// classifier round trip for all mapping misses. It returns the number of
// transactions that received a category.
func (e *Engine) CategorizeBatch(ctx context.Context, transactions []*models.Transaction) (int, error) {
	categorized := 0
	var misses []*models.Transaction

	for _, transaction := range transactions {
		if transaction.CategoryID != nil || transaction.Type == models.TypeTransfer {
			continue
		}

		key := pattern.Derive(transaction.Merchant, transaction.Description)
		if key != "" {
			mapping, err := models.FindMapping(e.db, transaction.UserID, key, transaction.Type)
			if err != nil {
				return categorized, err
			}

			if mapping != nil {
				err = e.apply(transaction, mapping.CategoryID, models.SourceLearned, mapping.Confidence)
				if err != nil {
					return categorized, err
				}

				categorized++
				continue
			}
		}

		misses = append(misses, transaction)
	}

	if len(misses) == 0 {
		return categorized, nil
	}

	requests := make([]classifier.Request, 0, len(misses))
	byID := make(map[string]*models.Transaction, len(misses))
	for _, transaction := range misses {
		requests = append(requests, e.request(*transaction))
		byID[transaction.ID.String()] = transaction
	}

	results, err := e.classifier.ClassifyBatch(ctx, requests)
	if err != nil {
		log.Warn().
			Err(err).
			Int("transactions", len(misses)).
			Msg("categorizer: batch classification unavailable")
		return categorized, nil
	}

	// Results are matched on the transaction ID since the service may
	// reorder or drop entries
	for _, result := range results {
		transaction, ok := byID[result.TransactionID]
		if !ok || result.CategoryID == nil {
			continue
		}

		err = e.applySuggestion(transaction, *result.CategoryID, result.Confidence)
		if err != nil {
			return categorized, err
		}

		categorized++
	}

	return categorized, nil
}

// applySuggestion verifies the suggested category and records it as an AI
// suggestion. Suggestions for categories that do not exist or belong to
// another user are dropped.
func (e *Engine) applySuggestion(transaction *models.Transaction, categoryID uuid.UUID, confidence float64) error {
	var category models.Category
	err := e.db.First(&category, "id = ? AND user_id = ?", categoryID, transaction.UserID).Error
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().
				Str("transaction-id", transaction.ID.String()).
				Str("category-id", categoryID.String()).
				Msg("categorizer: classifier suggested an unknown category, ignoring")
			return nil
		}

		return err
	}

	if confidence == 0 {
		confidence = e.cfg.AIDefaultConfidence
	}

	return e.apply(transaction, categoryID, models.SourceAI, confidence)
}

// apply persists the categorization result as a partial update, only the
// category provenance columns are touched.
func (e *Engine) apply(transaction *models.Transaction, categoryID uuid.UUID, source models.CategorySource, confidence float64) error {
	id := categoryID
	transaction.CategoryID = &id
	transaction.CategorySource = source
	transaction.CategorySuggested = true
	transaction.CategoryConfidence = confidence

	return e.db.Model(transaction).
		Select(models.CategoryUpdateColumns).
		Updates(map[string]any{
			"category_id":         transaction.CategoryID,
			"category_source":     transaction.CategorySource,
			"category_suggested":  transaction.CategorySuggested,
			"category_confidence": transaction.CategoryConfidence,
		}).Error
}

// request converts a transaction into the wire representation for the
// classifier.
func (e *Engine) request(transaction models.Transaction) classifier.Request {
	return classifier.Request{
		TransactionID: transaction.ID.String(),
		UserID:        transaction.UserID,
		Description:   transaction.Description,
		Merchant:      transaction.Merchant,
		Type:          string(transaction.Type),
		Amount:        transaction.Amount,
		Date:          transaction.Date.Format("2006-01-02"),
	}
}

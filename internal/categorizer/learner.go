package categorizer

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/money-magnet/backend/internal/classifier"
	"github.com/money-magnet/backend/internal/models"
	"github.com/money-magnet/backend/internal/pattern"
)

// LearnCorrection records a user decision about a suggested category as a
// mapping so that future transactions with the same pattern are categorized
// without the classifier.
//
// It fires when a transaction that carried a suggestion is given a category
// by the user, both for overrides and for confirmations of the suggestion.
// The resulting mapping always has full confidence. Other transactions of
// the user that match the pattern and still carry an unconfirmed suggestion
// are updated to the corrected category as well.
func (e *Engine) LearnCorrection(ctx context.Context, previous, updated models.Transaction) error {
	if !previous.CategorySuggested || updated.CategoryID == nil {
		return nil
	}

	if updated.Type == models.TypeTransfer {
		return nil
	}

	key := pattern.Derive(updated.Merchant, updated.Description)
	if key == "" {
		return nil
	}

	matchType := models.MatchMerchant
	if pattern.Normalize(updated.Merchant) == "" {
		matchType = models.MatchDescription
	}

	var category models.Category
	err := e.db.First(&category, "id = ? AND user_id = ?", updated.CategoryID, updated.UserID).Error
	if err != nil {
		return err
	}

	mapping, err := models.UpsertMapping(e.db, models.UpsertMappingParams{
		UserID:          updated.UserID,
		Pattern:         key,
		TransactionType: updated.Type,
		CategoryID:      category.ID,
		CategoryName:    category.Name,
		MatchType:       matchType,
		Confidence:      1.0,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("user-id", updated.UserID).
		Str("pattern", key).
		Str("category-id", category.ID.String()).
		Msg("categorizer: learned mapping from correction")

	// Propagate the correction to other transactions of the user that
	// match the pattern and still carry an unconfirmed suggestion
	err = e.reapply(ctx, updated.UserID, key, updated.Type, updated.ID, category.ID)
	if err != nil {
		return err
	}

	// Feedback to the classifier is best effort, its training loop must
	// not block the correction
	err = e.classifier.NotifyLearning(ctx, classifier.LearningEvent{
		UserID:          updated.UserID,
		Pattern:         mapping.Pattern,
		TransactionType: string(updated.Type),
		CategoryID:      category.ID.String(),
		CategoryName:    category.Name,
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("pattern", key).
			Msg("categorizer: learning notification failed")
	}

	return nil
}

// reapply updates the user's other still-suggested transactions matching
// the pattern to the corrected category.
func (e *Engine) reapply(ctx context.Context, userID, key string, transactionType models.TransactionType, exclude, categoryID uuid.UUID) error {
	var transactions []models.Transaction
	err := e.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND category_suggested = ? AND id != ?", userID, transactionType, true, exclude).
		Find(&transactions).Error
	if err != nil {
		return err
	}

	var ids []uuid.UUID
	for _, transaction := range transactions {
		if pattern.Derive(transaction.Merchant, transaction.Description) == key {
			ids = append(ids, transaction.ID)
		}
	}

	if len(ids) == 0 {
		return nil
	}

	// Hooks validate a full transaction, which a column-only batch update
	// does not carry
	err = e.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Model(&models.Transaction{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"category_id":         categoryID,
			"category_source":     models.SourceLearned,
			"category_suggested":  true,
			"category_confidence": 1.0,
		}).Error
	if err != nil {
		return err
	}

	log.Debug().
		Str("pattern", key).
		Int("transactions", len(ids)).
		Msg("categorizer: reapplied correction to matching suggestions")

	return nil
}

// CorrectMerchant applies a category to all of the user's transactions of
// the given type that match the merchant pattern and persists the pattern
// as a full-confidence mapping.
//
// Transactions the user already pinned to a different category are left
// alone. The returned count contains only rows that actually changed, a
// repeated call for the same merchant and category reports zero.
func (e *Engine) CorrectMerchant(ctx context.Context, userID, merchant string, categoryID uuid.UUID, transactionType models.TransactionType) (int, error) {
	key := pattern.Normalize(merchant)
	if key == "" {
		return 0, models.ErrMappingPatternEmpty
	}

	var category models.Category
	err := e.db.First(&category, "id = ? AND user_id = ?", categoryID, userID).Error
	if err != nil {
		return 0, err
	}

	var transactions []models.Transaction
	err = e.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, transactionType).
		Find(&transactions).Error
	if err != nil {
		return 0, err
	}

	var ids []uuid.UUID
	for _, transaction := range transactions {
		if pattern.Derive(transaction.Merchant, transaction.Description) != key {
			continue
		}

		// A manual assignment to another category is a deliberate user
		// decision, the sweep does not override it
		if transaction.CategorySource == models.SourceManual && !transaction.CategorySuggested &&
			transaction.CategoryID != nil && *transaction.CategoryID != category.ID {
			continue
		}

		// Skip rows that already carry the target state
		if transaction.CategoryID != nil && *transaction.CategoryID == category.ID &&
			transaction.CategorySource == models.SourceManual && !transaction.CategorySuggested {
			continue
		}

		ids = append(ids, transaction.ID)
	}

	changed := 0
	for start := 0; start < len(ids); start += e.cfg.SweepChunkSize {
		if err := ctx.Err(); err != nil {
			return changed, err
		}

		end := min(start+e.cfg.SweepChunkSize, len(ids))
		chunk := ids[start:end]

		err = e.db.Transaction(func(tx *gorm.DB) error {
			return tx.Session(&gorm.Session{SkipHooks: true}).
				Model(&models.Transaction{}).
				Where("id IN ?", chunk).
				Updates(map[string]any{
					"category_id":         category.ID,
					"category_source":     models.SourceManual,
					"category_suggested":  false,
					"category_confidence": 1.0,
				}).Error
		})
		if err != nil {
			return changed, err
		}

		changed += len(chunk)
	}

	_, err = models.UpsertMapping(e.db, models.UpsertMappingParams{
		UserID:          userID,
		Pattern:         key,
		TransactionType: transactionType,
		CategoryID:      category.ID,
		CategoryName:    category.Name,
		MatchType:       models.MatchMerchant,
		Confidence:      1.0,
	})
	if err != nil {
		return changed, err
	}

	log.Info().
		Str("user-id", userID).
		Str("pattern", key).
		Int("transactions", changed).
		Msg("categorizer: bulk merchant correction applied")

	return changed, nil
}

package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatchType describes which transaction field a mapping pattern was
// derived from.
//
// swagger:enum MatchType
type MatchType string

const (
	MatchMerchant    MatchType = "merchant"
	MatchDescription MatchType = "description"
)

// CategoryMapping is a learned association from a normalized merchant or
// description pattern to a category. It short-circuits the external
// classifier for transactions the user has categorized before.
//
// There is at most one mapping per (user, pattern, transaction type).
type CategoryMapping struct {
	DefaultModel
	UserID          string          `gorm:"uniqueIndex:mapping_user_id_pattern_type"`
	Pattern         string          `gorm:"uniqueIndex:mapping_user_id_pattern_type"`
	TransactionType TransactionType `gorm:"uniqueIndex:mapping_user_id_pattern_type"`
	CategoryID      uuid.UUID
	Category        Category `json:"-"`
	CategoryName    string   // Denormalized cache of the category name
	MatchType       MatchType
	Confidence      float64
	UsageCount      uint
	LastUsedAt      *time.Time
}

// BeforeSave validates the mapping.
func (m *CategoryMapping) BeforeSave(_ *gorm.DB) error {
	if m.TransactionType != TypeIncome && m.TransactionType != TypeExpense {
		return ErrMappingTypeInvalid
	}

	return nil
}

// FindMapping looks up the mapping for the exact (user, pattern, transaction
// type) key. A missing mapping is not an error, the first return value is nil.
//
// On a hit, the usage count is incremented and the last use timestamp
// refreshed. Lost increments under concurrent hits are acceptable, the
// counter only tracks how useful a mapping is over time.
func FindMapping(db *gorm.DB, userID, pattern string, txType TransactionType) (*CategoryMapping, error) {
	var mapping CategoryMapping

	err := db.
		Where("user_id = ? AND pattern = ? AND transaction_type = ?", userID, pattern, txType).
		First(&mapping).Error
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now().In(time.UTC)
	err = db.Model(&mapping).
		Select("usage_count", "last_used_at").
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": now,
		}).Error
	if err != nil {
		return nil, err
	}

	mapping.UsageCount++
	mapping.LastUsedAt = &now

	return &mapping, nil
}

// UpsertMappingParams are the user configurable values of a mapping upsert.
type UpsertMappingParams struct {
	UserID          string
	Pattern         string
	TransactionType TransactionType
	CategoryID      uuid.UUID
	CategoryName    string
	MatchType       MatchType
	Confidence      float64
}

// UpsertMapping creates or updates the mapping for the natural
// (user, pattern, transaction type) key.
//
// An existing mapping gets its category, confidence and match type
// overwritten and its usage count incremented. A new mapping starts with a
// usage count of 1. When two upserts for the same key race on the unique
// index, the insert loses and is retried as an update, so the last write
// wins without corrupting the record.
func UpsertMapping(db *gorm.DB, params UpsertMappingParams) (*CategoryMapping, error) {
	if params.Confidence == 0 {
		params.Confidence = 1.0
	}

	now := time.Now().In(time.UTC)

	var mapping CategoryMapping
	err := db.
		Where("user_id = ? AND pattern = ? AND transaction_type = ?", params.UserID, params.Pattern, params.TransactionType).
		First(&mapping).Error

	if errors.Is(err, ErrResourceNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		mapping = CategoryMapping{
			UserID:          params.UserID,
			Pattern:         params.Pattern,
			TransactionType: params.TransactionType,
			CategoryID:      params.CategoryID,
			CategoryName:    params.CategoryName,
			MatchType:       params.MatchType,
			Confidence:      params.Confidence,
			UsageCount:      1,
			LastUsedAt:      &now,
		}

		err = db.Create(&mapping).Error
		if err == nil {
			return &mapping, nil
		}

		// Lost the race against a concurrent insert for the same key.
		// Fall through to the update path.
		if !errors.Is(err, ErrMappingPatternNotUnique) {
			return nil, err
		}

		err = db.
			Where("user_id = ? AND pattern = ? AND transaction_type = ?", params.UserID, params.Pattern, params.TransactionType).
			First(&mapping).Error
	}

	if err != nil {
		return nil, err
	}

	err = db.Model(&mapping).
		Select("category_id", "category_name", "match_type", "confidence", "usage_count", "last_used_at").
		Updates(map[string]interface{}{
			"category_id":  params.CategoryID,
			"category_name": params.CategoryName,
			"match_type":   params.MatchType,
			"confidence":   params.Confidence,
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": now,
		}).Error
	if err != nil {
		return nil, err
	}

	mapping.CategoryID = params.CategoryID
	mapping.CategoryName = params.CategoryName
	mapping.MatchType = params.MatchType
	mapping.Confidence = params.Confidence
	mapping.UsageCount++
	mapping.LastUsedAt = &now

	return &mapping, nil
}

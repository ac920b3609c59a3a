package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType describes the direction of a transaction.
//
// swagger:enum TransactionType
type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

// Valid returns whether the transaction type is one of the known values.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense || t == TypeTransfer
}

// CategorySource describes where the category of a transaction came from.
//
// swagger:enum CategorySource
type CategorySource string

const (
	SourceNone    CategorySource = ""
	SourceAI      CategorySource = "ai"
	SourceLearned CategorySource = "learned"
	SourceManual  CategorySource = "manual"
)

// Transaction represents a single booking on an account.
type Transaction struct {
	DefaultModel
	UserID      string `gorm:"index;uniqueIndex:transaction_user_id_external_id,where:external_id != ''"`
	AccountID   *uuid.UUID
	Account     Account `json:"-"`
	CategoryID  *uuid.UUID
	Category    Category        `json:"-"`
	Type        TransactionType `gorm:"index"`
	Amount      decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	Description string
	Merchant    string
	Date        time.Time

	// Categorization provenance. A transaction with CategorySuggested set
	// has not been confirmed by a human and may be reclassified when the
	// user corrects a mapping.
	CategorySource     CategorySource
	CategorySuggested  bool
	CategoryConfidence float64

	// Deduplication key for transactions imported from external sources.
	ExternalID string `gorm:"uniqueIndex:transaction_user_id_external_id,where:external_id != ''"`
}

// CategoryUpdateColumns are the columns the categorization pipeline is
// allowed to touch. All other columns are never part of its partial updates.
var CategoryUpdateColumns = []string{"category_id", "category_source", "category_suggested", "category_confidence"}

// BeforeSave validates the transaction and normalizes its strings and date.
func (t *Transaction) BeforeSave(_ *gorm.DB) error {
	if !t.Type.Valid() {
		return ErrTransactionTypeInvalid
	}

	if t.Amount.IsNegative() {
		return ErrTransactionAmountInvalid
	}

	t.Description = strings.TrimSpace(t.Description)
	t.Merchant = strings.TrimSpace(t.Merchant)
	t.ExternalID = strings.TrimSpace(t.ExternalID)

	// The date is a calendar date without a time component
	if t.Date.IsZero() {
		t.Date = time.Now().In(time.UTC)
	}
	t.Date = time.Date(t.Date.Year(), t.Date.Month(), t.Date.Day(), 0, 0, 0, 0, time.UTC)

	return nil
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	_ = t.DefaultModel.BeforeCreate(tx)
	return t.checkIntegrity(tx)
}

// BeforeUpdate verifies the referenced resources before committing
// an update to the database.
func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed("AccountID") || tx.Statement.Changed("CategoryID") {
		return t.checkIntegrity(tx)
	}

	return nil
}

// AfterFind updates the date to use UTC as timezone.
func (t *Transaction) AfterFind(tx *gorm.DB) error {
	err := t.DefaultModel.AfterFind(tx)
	if err != nil {
		return err
	}

	t.Date = t.Date.In(time.UTC)
	return nil
}

// checkIntegrity verifies references to other resources
func (t *Transaction) checkIntegrity(tx *gorm.DB) error {
	if t.AccountID != nil {
		err := tx.Session(&gorm.Session{NewDB: true}).First(&Account{}, "id = ?", t.AccountID).Error
		if err != nil {
			return err
		}
	}

	if t.CategoryID != nil {
		err := tx.Session(&gorm.Session{NewDB: true}).First(&Category{}, "id = ?", t.CategoryID).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// TransactionsSum returns the income, expense and net sums for all
// transactions of a user in the date range. Both dates are inclusive.
func TransactionsSum(db *gorm.DB, userID string, from, until time.Time) (income, expense, net decimal.Decimal, err error) {
	type row struct {
		Type  TransactionType
		Total decimal.NullDecimal
	}

	var rows []row
	err = db.Model(&Transaction{}).
		Select("type, SUM(amount) AS total").
		Where("user_id = ?", userID).
		Where("date(date) >= date(?) AND date(date) <= date(?)", from, until).
		Group("type").
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}

	for _, r := range rows {
		switch r.Type {
		case TypeIncome:
			income = r.Total.Decimal
		case TypeExpense:
			expense = r.Total.Decimal
		}
	}

	return income, expense, income.Sub(expense), nil
}

// MonthlyAverages returns the average monthly income and expense sums over
// all full months before the given date.
func MonthlyAverages(db *gorm.DB, userID string, before time.Time) (income, expense decimal.Decimal, err error) {
	type row struct {
		Type    TransactionType
		Average decimal.NullDecimal
	}

	var rows []row
	err = db.Raw(`
		SELECT type, AVG(total) AS average
		FROM (
			SELECT type, strftime('%Y-%m', date) AS month, SUM(amount) AS total
			FROM transactions
			WHERE user_id = ? AND date(date) < date(?) AND deleted_at IS NULL
			GROUP BY type, month
		)
		GROUP BY type`, userID, before).
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	for _, r := range rows {
		switch r.Type {
		case TypeIncome:
			income = r.Average.Decimal
		case TypeExpense:
			expense = r.Average.Decimal
		}
	}

	return income, expense, nil
}

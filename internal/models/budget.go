package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetPeriod is the recurrence of a budget.
//
// swagger:enum BudgetPeriod
type BudgetPeriod string

const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

// Budget is a spending limit for a category over a recurring period.
type Budget struct {
	DefaultModel
	UserID     string `gorm:"index"`
	CategoryID uuid.UUID
	Category   Category        `json:"-"`
	Amount     decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	Period     BudgetPeriod
	StartDate  time.Time
}

// BeforeSave validates the budget.
func (b *Budget) BeforeSave(_ *gorm.DB) error {
	if b.Period != PeriodWeekly && b.Period != PeriodMonthly && b.Period != PeriodYearly {
		return ErrBudgetPeriodInvalid
	}

	if b.StartDate.IsZero() {
		b.StartDate = time.Now().In(time.UTC)
	}
	b.StartDate = b.StartDate.In(time.UTC)

	return nil
}

func (b *Budget) BeforeCreate(tx *gorm.DB) error {
	_ = b.DefaultModel.BeforeCreate(tx)
	return b.checkIntegrity(tx)
}

// checkIntegrity verifies that the referenced category exists
func (b *Budget) checkIntegrity(tx *gorm.DB) error {
	return tx.Session(&gorm.Session{NewDB: true}).First(&Category{}, "id = ?", b.CategoryID).Error
}

// Spent returns the sum of all expense transactions for the budget's
// category in the current period.
func (b Budget) Spent(db *gorm.DB, now time.Time) (decimal.Decimal, error) {
	var from time.Time

	now = now.In(time.UTC)
	switch b.Period {
	case PeriodWeekly:
		from = now.AddDate(0, 0, -int(now.Weekday()))
	case PeriodYearly:
		from = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	var total decimal.NullDecimal
	err := db.Model(&Transaction{}).
		Select("SUM(amount)").
		Where("user_id = ? AND category_id = ? AND type = ?", b.UserID, b.CategoryID, TypeExpense).
		Where("date(date) >= date(?) AND date(date) <= date(?)", from, now).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}

	return total.Decimal, nil
}

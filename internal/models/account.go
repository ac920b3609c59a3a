package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account represents a financial account, e.g. a bank account or a credit card.
type Account struct {
	DefaultModel
	UserID         string `gorm:"index;uniqueIndex:account_user_id_name"`
	Name           string `gorm:"uniqueIndex:account_user_id_name"`
	Type           string // Account type code, e.g. "checking" or "credit_card"
	Note           string
	Currency       string
	BalanceCurrent decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	IsClosed       bool
}

// BeforeSave trims whitespace from all strings and defaults the currency.
func (a *Account) BeforeSave(_ *gorm.DB) error {
	a.Name = strings.TrimSpace(a.Name)
	a.Type = strings.TrimSpace(a.Type)
	a.Note = strings.TrimSpace(a.Note)

	if a.Currency == "" {
		a.Currency = "USD"
	}

	return nil
}

// Transactions returns all transactions for this account.
func (a Account) Transactions(db *gorm.DB) ([]Transaction, error) {
	var transactions []Transaction

	err := db.Where(&Transaction{AccountID: &a.ID}).Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

// AccountsBalance returns the sum of the current balances of all open
// accounts of the user.
func AccountsBalance(db *gorm.DB, userID string) (decimal.Decimal, error) {
	var total decimal.NullDecimal

	err := db.Model(&Account{}).
		Select("SUM(balance_current)").
		Where("user_id = ? AND is_closed = ?", userID, false).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}

	return total.Decimal, nil
}

// balanceDelta returns the signed change a transaction applies to
// the balance of its account. Transfers do not change the balance.
func balanceDelta(txType TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch txType {
	case TypeIncome:
		return amount
	case TypeExpense:
		return amount.Neg()
	default:
		return decimal.Zero
	}
}

// ApplyTransactionBalance adjusts the current balance of an account for a
// transaction. With revert set, a previously applied transaction is undone,
// e.g. before an update or a deletion.
//
// A nil account ID is a no-op since transactions do not have to be booked
// against an account.
func ApplyTransactionBalance(db *gorm.DB, accountID *uuid.UUID, txType TransactionType, amount decimal.Decimal, revert bool) error {
	if accountID == nil {
		return nil
	}

	delta := balanceDelta(txType, amount)
	if delta.IsZero() {
		return nil
	}

	if revert {
		delta = delta.Neg()
	}

	return db.Model(&Account{}).
		Where("id = ?", accountID).
		Update("balance_current", gorm.Expr("balance_current + ?", delta)).
		Error
}

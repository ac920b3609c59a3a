package models

import (
	"errors"
)

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")

	ErrAccountNameNotUnique    = errors.New("the account name must be unique for the user")
	ErrCategoryNameNotUnique   = errors.New("the category name must be unique for the user")
	ErrMappingPatternNotUnique = errors.New("a category mapping already exists for this pattern and transaction type")
	ErrExternalIDNotUnique     = errors.New("a transaction with this external ID has already been imported")

	ErrTransactionTypeInvalid   = errors.New("the transaction type must be income, expense or transfer")
	ErrTransactionAmountInvalid = errors.New("the transaction amount must not be negative")
	ErrMappingTypeInvalid       = errors.New("the mapping transaction type must be income or expense")
	ErrMappingPatternEmpty      = errors.New("the merchant name does not contain any usable characters")
	ErrBudgetPeriodInvalid      = errors.New("the budget period must be weekly, monthly or yearly")
)

package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/money-magnet/backend/internal/models"
	mm_uuid "github.com/money-magnet/backend/internal/uuid"
)

// TransactionEditable represents all user configurable parameters
type TransactionEditable struct {
	Date time.Time `json:"date" example:"2024-02-07T00:00:00Z"` // Date of the transaction. The time component is discarded.

	// The maximum value is "999999999999.99999999", swagger unfortunately rounds this.
	Amount decimal.Decimal `json:"amount" example:"14.03" minimum:"0" maximum:"999999999999.99999999" multipleOf:"0.00000001"` // The amount of the transaction

	Type        models.TransactionType `json:"type" example:"expense" enums:"income,expense,transfer"`         // Direction of the transaction
	Description string                 `json:"description" example:"Lunch at the italian place" default:""`     // Description of the transaction
	Merchant    string                 `json:"merchant" example:"Trattoria Bella" default:""`                   // Merchant the transaction was made at
	AccountID   *uuid.UUID             `json:"accountId" example:"af892e10-7e0a-4fb8-b1bc-4b6d88401ed2"`        // ID of the account the transaction is booked on
	CategoryID  *uuid.UUID             `json:"categoryId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"`       // ID of the category
	ExternalID  string                 `json:"externalId" example:"bank-2024-02-07-000233" default:""`          // Deduplication ID from an external system
}

// model returns the database resource for the API representation of the editable fields
func (editable TransactionEditable) model(userID string) models.Transaction {
	transaction := models.Transaction{
		UserID:      userID,
		Date:        editable.Date,
		Amount:      editable.Amount,
		Type:        editable.Type,
		Description: editable.Description,
		Merchant:    editable.Merchant,
		AccountID:   editable.AccountID,
		CategoryID:  editable.CategoryID,
		ExternalID:  editable.ExternalID,
	}

	// A category sent by the user is a manual, confirmed decision
	if editable.CategoryID != nil {
		transaction.CategorySource = models.SourceManual
		transaction.CategoryConfidence = 1.0
	}

	return transaction
}

type TransactionLinks struct {
	Self string `json:"self" example:"https://example.com/api/v1/transactions/d430d7c3-d14c-4712-9336-ee56965a6673"` // The transaction itself
}

// Transaction is the representation of a Transaction in API v1.
type Transaction struct {
	models.DefaultModel
	TransactionEditable
	Links TransactionLinks `json:"links"`

	// Categorization provenance
	CategorySource     models.CategorySource `json:"categorySource" example:"learned" enums:",ai,learned,manual"` // Where the category came from
	CategorySuggested  bool                  `json:"categorySuggested" example:"true"`                            // Is the category an unconfirmed suggestion?
	CategoryConfidence float64               `json:"categoryConfidence" example:"0.8"`                            // Confidence of the categorization
}

// newTransaction returns the API v1 representation of the resource
func newTransaction(c *gin.Context, model models.Transaction) Transaction {
	url := c.GetString(string(models.ContextURL))

	return Transaction{
		DefaultModel: model.DefaultModel,
		TransactionEditable: TransactionEditable{
			Date:        model.Date,
			Amount:      model.Amount,
			Type:        model.Type,
			Description: model.Description,
			Merchant:    model.Merchant,
			AccountID:   model.AccountID,
			CategoryID:  model.CategoryID,
			ExternalID:  model.ExternalID,
		},
		CategorySource:     model.CategorySource,
		CategorySuggested:  model.CategorySuggested,
		CategoryConfidence: model.CategoryConfidence,
		Links: TransactionLinks{
			Self: fmt.Sprintf("%s/v1/transactions/%s", url, model.ID),
		},
	}
}

type TransactionListResponse struct {
	Data       []Transaction `json:"data"`                                                          // List of transactions
	Error      *string       `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination   `json:"pagination"`                                                    // Pagination information
}

type TransactionCreateResponse struct {
	Error *string               `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  []TransactionResponse `json:"data"`                                                          // List of created Transactions
}

func (t *TransactionCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, TransactionResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type TransactionResponse struct {
	Error *string      `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred for this transaction
	Data  *Transaction `json:"data"`                                                          // The Transaction data, if creation was successful
}

type TransactionQueryFilter struct {
	Date              time.Time              `form:"date" time_format:"2006-01-02" time_utc:"1" filterField:"false"`      // Date of the transaction
	FromDate          time.Time              `form:"fromDate" time_format:"2006-01-02" time_utc:"1" filterField:"false"`  // Transactions at or after this date
	UntilDate         time.Time              `form:"untilDate" time_format:"2006-01-02" time_utc:"1" filterField:"false"` // Transactions before or at this date
	Type              models.TransactionType `form:"type"`                            // Direction of the transaction
	AccountID         mm_uuid.UUID           `form:"account" filterField:"false"`     // ID of the account
	CategoryID        mm_uuid.UUID           `form:"category" filterField:"false"`    // ID of the category
	Merchant          string                 `form:"merchant" filterField:"false"`    // Merchant of the transaction
	Description       string                 `form:"description" filterField:"false"` // Description of the transaction
	Uncategorized     bool                   `form:"uncategorized" filterField:"false"` // Only transactions without a category
	CategorySuggested bool                   `form:"suggested" filterField:"false"`   // Only transactions with an unconfirmed suggestion
	Offset            uint                   `form:"offset" filterField:"false"`      // The offset of the first Transaction returned. Defaults to 0.
	Limit             int                    `form:"limit" filterField:"false"`       // Maximum number of Transactions to return. Defaults to 50.
}

func (f TransactionQueryFilter) model() models.Transaction {
	return models.Transaction{
		Type: f.Type,
	}
}

// TransactionSummaryResponse contains the income, expense and net sums
// for the requested date range.
type TransactionSummaryResponse struct {
	Data  *TransactionSummary `json:"data"`                                             // The summary data
	Error *string             `json:"error" example:"parsing time \"yesterday\" failed"` // The error, if any occurred
}

type TransactionSummary struct {
	Income  decimal.Decimal `json:"income" example:"3500"`   // Sum of income transactions in the range
	Expense decimal.Decimal `json:"expense" example:"2821.5"` // Sum of expense transactions in the range
	Net     decimal.Decimal `json:"net" example:"678.5"`     // Income minus expense
}

// RecategorizeMerchantEditable is the request body for a bulk merchant
// correction.
type RecategorizeMerchantEditable struct {
	Merchant   string                 `json:"merchant" example:"Starbucks #552"`                         // Merchant whose transactions are recategorized
	CategoryID uuid.UUID              `json:"categoryId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"` // Category to assign
	Type       models.TransactionType `json:"type" example:"expense" default:"expense" enums:"income,expense"`              // Direction of the affected transactions
}

type RecategorizeMerchantResponse struct {
	Data  *RecategorizeMerchantResult `json:"data"`                                                          // The result of the bulk correction
	Error *string                     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type RecategorizeMerchantResult struct {
	Updated int `json:"updated" example:"12"` // Number of transactions that were updated
}

// CategorizeResponse is the response for a batch categorization run.
type CategorizeResponse struct {
	Data  *CategorizeResult `json:"data"`                                                          // The result of the categorization run
	Error *string           `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type CategorizeResult struct {
	Processed   int `json:"processed" example:"31"`   // Number of uncategorized transactions processed
	Categorized int `json:"categorized" example:"27"` // Number of transactions that received a category
}

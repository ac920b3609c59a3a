package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/money-magnet/backend/internal/models"
)

// AccountEditable represents all user configurable parameters
type AccountEditable struct {
	Name     string `json:"name" example:"Checking" default:""`                  // Name of the account
	Type     string `json:"type" example:"checking" default:""`                  // Type of the account, e.g. "checking", "savings" or "credit_card"
	Note     string `json:"note" example:"Main account at my house bank" default:""` // Notes about the account
	Currency string `json:"currency" example:"USD" default:"USD"`                // ISO 4217 currency code
	IsClosed bool   `json:"isClosed" example:"true" default:"false"`             // Is the account closed?
}

func (editable AccountEditable) model(userID string) models.Account {
	return models.Account{
		UserID:   userID,
		Name:     editable.Name,
		Type:     editable.Type,
		Note:     editable.Note,
		Currency: editable.Currency,
		IsClosed: editable.IsClosed,
	}
}

type AccountLinks struct {
	Self         string `json:"self" example:"https://example.com/api/v1/accounts/af892e10-7e0a-4fb8-b1bc-4b6d88401ed2"`                      // The account itself
	Transactions string `json:"transactions" example:"https://example.com/api/v1/transactions?account=af892e10-7e0a-4fb8-b1bc-4b6d88401ed2"` // Transactions for this account
}

type Account struct {
	models.DefaultModel
	AccountEditable
	Links AccountLinks `json:"links"`

	// This field is computed from the account's transactions
	Balance decimal.Decimal `json:"balance" example:"2735.17"` // Current balance of the account
}

func newAccount(c *gin.Context, model models.Account) Account {
	url := c.GetString(string(models.ContextURL))

	return Account{
		DefaultModel: model.DefaultModel,
		AccountEditable: AccountEditable{
			Name:     model.Name,
			Type:     model.Type,
			Note:     model.Note,
			Currency: model.Currency,
			IsClosed: model.IsClosed,
		},
		Balance: model.BalanceCurrent,
		Links: AccountLinks{
			Self:         fmt.Sprintf("%s/v1/accounts/%s", url, model.ID),
			Transactions: fmt.Sprintf("%s/v1/transactions?account=%s", url, model.ID),
		},
	}
}

type AccountListResponse struct {
	Data       []Account   `json:"data"`                                                          // List of accounts
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type AccountCreateResponse struct {
	Data  []AccountResponse `json:"data"`                                                          // List of the created Accounts or their respective error
	Error *string           `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (a *AccountCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	a.Data = append(a.Data, AccountResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type AccountResponse struct {
	Data  *Account `json:"data"`                                                          // Data for the Account
	Error *string  `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type AccountQueryFilter struct {
	Name     string `form:"name" filterField:"false"`   // By name
	Type     string `form:"type"`                       // By type
	Note     string `form:"note" filterField:"false"`   // By note
	Currency string `form:"currency"`                   // By currency
	IsClosed bool   `form:"isClosed"`                   // Is the account closed?
	Search   string `form:"search" filterField:"false"` // By string in name or note
	Offset   uint   `form:"offset" filterField:"false"` // The offset of the first Account returned. Defaults to 0.
	Limit    int    `form:"limit" filterField:"false"`  // Maximum number of Accounts to return. Defaults to 50.
}

func (f AccountQueryFilter) model() models.Account {
	return models.Account{
		Type:     f.Type,
		Currency: f.Currency,
		IsClosed: f.IsClosed,
	}
}

package v1_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	v1 "github.com/money-magnet/backend/internal/controllers/v1"
	"github.com/money-magnet/backend/internal/models"
	"github.com/money-magnet/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestAccountsOptions() {
	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"No Account with this ID", uuid.New().String(), http.StatusNotFound},
		{"Not a valid UUID", "NotParseableAsUUID", http.StatusBadRequest},
		{"Account exists", createTestAccount(suite.T(), suite.controller, v1.AccountEditable{}).Data.ID.String(), http.StatusNoContent},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			path := fmt.Sprintf("%s/%s", "http://example.com/v1/accounts", tt.id)
			r := request(t, suite.controller, http.MethodOptions, path, "")
			test.AssertHTTPStatus(t, &r, tt.status)

			if tt.status == http.StatusNoContent {
				assert.Equal(t, "GET, PATCH, DELETE", r.Header().Get("allow"))
			}
		})
	}
}

func (suite *TestSuiteStandard) TestAccountsCreate() {
	account := createTestAccount(suite.T(), suite.controller, v1.AccountEditable{Name: "Checking", Type: "checking"})

	suite.Assert().Equal("Checking", account.Data.Name)
	suite.Assert().Equal("checking", account.Data.Type)
	suite.Assert().Equal("USD", account.Data.Currency, "Currency does not default to USD")
	suite.Assert().True(account.Data.Balance.IsZero())
	suite.Assert().NotEmpty(account.Data.Links.Self)
}

func (suite *TestSuiteStandard) TestAccountsCreateDuplicateName() {
	_ = createTestAccount(suite.T(), suite.controller, v1.AccountEditable{Name: "Checking"})

	r := request(suite.T(), suite.controller, http.MethodPost, "http://example.com/v1/accounts", []v1.AccountEditable{{Name: "Checking"}})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)

	var response v1.AccountCreateResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(models.ErrAccountNameNotUnique.Error(), *response.Data[0].Error)
}

func (suite *TestSuiteStandard) TestAccountsCreateInvalidBody() {
	r := request(suite.T(), suite.controller, http.MethodPost, "http://example.com/v1/accounts", `{ "name": 2" }`)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestAccountsGetSingle() {
	account := createTestAccount(suite.T(), suite.controller, v1.AccountEditable{})

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"Existing Account", account.Data.ID.String(), http.StatusOK},
		{"No Account with this ID", uuid.New().String(), http.StatusNotFound},
		{"Not a valid UUID", "definitely-not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := request(t, suite.controller, http.MethodGet, fmt.Sprintf("http://example.com/v1/accounts/%s", tt.id), "")
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestAccountsGetFilter() {
	_ = createTestAccount(suite.T(), suite.controller, v1.AccountEditable{Name: "Checking", Type: "checking"})
	_ = createTestAccount(suite.T(), suite.controller, v1.AccountEditable{Name: "Savings", Type: "savings"})
	_ = createTestAccount(suite.T(), suite.controller, v1.AccountEditable{Name: "Old", Type: "checking", IsClosed: true})

	tests := []struct {
		name  string
		query string
		count int
	}{
		{"All accounts", "", 3},
		{"Checking accounts", "type=checking", 2},
		{"Closed accounts", "isClosed=true", 1},
		{"Name search", "name=Sav", 1},
		{"Limit", "limit=2", 2},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := request(t, suite.controller, http.MethodGet, fmt.Sprintf("http://example.com/v1/accounts?%s", tt.query), "")
			test.AssertHTTPStatus(t, &r, http.StatusOK)

			var response v1.AccountListResponse
			test.DecodeResponse(t, &r, &response)
			assert.Len(t, response.Data, tt.count)
		})
	}
}

func (suite *TestSuiteStandard) TestAccountsIsolatedPerUser() {
	_ = createTestAccount(suite.T(), suite.controller, v1.AccountEditable{Name: "Checking"})

	r := requestAs(suite.T(), suite.controller, "another-user", http.MethodGet, "http://example.com/v1/accounts", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.AccountListResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Len(response.Data, 0, "Accounts leak between users")
}

func (suite *TestSuiteStandard) TestAccountsUpdate() {
	account := createTestAccount(suite.T(), suite.controller, v1.AccountEditable{Name: "Checking"})

	r := request(suite.T(), suite.controller, http.MethodPatch, account.Data.Links.Self, map[string]any{
		"note": "Main account at my house bank",
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.AccountResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal("Main account at my house bank", response.Data.Note)
	suite.Assert().Equal("Checking", response.Data.Name, "Fields that were not part of the request were changed")
}

func (suite *TestSuiteStandard) TestAccountsUpdateOtherUser() {
	account := createTestAccount(suite.T(), suite.controller, v1.AccountEditable{})

	r := requestAs(suite.T(), suite.controller, "another-user", http.MethodPatch, account.Data.Links.Self, map[string]any{
		"note": "Sneaky",
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestAccountsDelete() {
	account := createTestAccount(suite.T(), suite.controller, v1.AccountEditable{})

	r := request(suite.T(), suite.controller, http.MethodDelete, account.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	r = request(suite.T(), suite.controller, http.MethodGet, account.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestAccountsDeleteCascadesToTransactions() {
	account := createTestAccount(suite.T(), suite.controller, v1.AccountEditable{})
	accountID := account.Data.ID

	transaction := createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:    decimal.NewFromFloat(17.23),
		AccountID: &accountID,
	})

	r := request(suite.T(), suite.controller, http.MethodDelete, account.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	r = request(suite.T(), suite.controller, http.MethodGet, transaction.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestAccountsDBClosed() {
	tests := []struct {
		name string
		test func(t *testing.T)
	}{
		{
			"Creation fails",
			func(t *testing.T) {
				createTestAccount(t, suite.controller, v1.AccountEditable{}, http.StatusInternalServerError)
			},
		},
		{
			"GET fails",
			func(t *testing.T) {
				r := request(t, suite.controller, http.MethodGet, "http://example.com/v1/accounts", "")
				test.AssertHTTPStatus(t, &r, http.StatusInternalServerError)

				var response v1.AccountListResponse
				test.DecodeResponse(t, &r, &response)
				assert.Contains(t, *response.Error, models.ErrGeneral.Error())
			},
		},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			suite.CloseDB()

			tt.test(t)
		})
	}
}

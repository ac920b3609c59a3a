package v1_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	v1 "github.com/money-magnet/backend/internal/controllers/v1"
	"github.com/money-magnet/backend/internal/classifier"
	"github.com/money-magnet/backend/internal/models"
	"github.com/money-magnet/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestTransactionsCreate() {
	account := createTestAccount(suite.T(), suite.controller, v1.AccountEditable{})
	accountID := account.Data.ID

	transaction := createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:    decimal.NewFromFloat(14.03),
		Merchant:  "Trattoria Bella",
		AccountID: &accountID,
	})

	suite.Assert().Equal("Trattoria Bella", transaction.Data.Merchant)
	suite.Assert().Nil(transaction.Data.CategoryID)
	suite.Assert().Equal(models.CategorySource(""), transaction.Data.CategorySource)

	// The account balance reflects the expense
	r := request(suite.T(), suite.controller, http.MethodGet, account.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var reloaded v1.AccountResponse
	test.DecodeResponse(suite.T(), &r, &reloaded)
	suite.Assert().True(decimal.NewFromFloat(-14.03).Equal(reloaded.Data.Balance), "Balance is %s", reloaded.Data.Balance)
}

func (suite *TestSuiteStandard) TestTransactionsCreateInvalidType() {
	r := request(suite.T(), suite.controller, http.MethodPost, "http://example.com/v1/transactions", []v1.TransactionEditable{{
		Type:   models.TransactionType("refund"),
		Amount: decimal.NewFromFloat(10),
	}})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)

	var response v1.TransactionCreateResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(models.ErrTransactionTypeInvalid.Error(), *response.Data[0].Error)
}

func (suite *TestSuiteStandard) TestTransactionsCreateDuplicateExternalID() {
	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:     decimal.NewFromFloat(10),
		ExternalID: "bank-2024-02-07-000233",
	})

	r := request(suite.T(), suite.controller, http.MethodPost, "http://example.com/v1/transactions", []v1.TransactionEditable{{
		Type:       models.TypeExpense,
		Amount:     decimal.NewFromFloat(10),
		ExternalID: "bank-2024-02-07-000233",
	}})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)

	var response v1.TransactionCreateResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(models.ErrExternalIDNotUnique.Error(), *response.Data[0].Error)
}

func (suite *TestSuiteStandard) TestTransactionsCreateManualCategory() {
	category := createTestCategory(suite.T(), suite.controller, v1.CategoryEditable{Name: "Dining"})
	categoryID := category.Data.ID

	transaction := createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:     decimal.NewFromFloat(14.03),
		Merchant:   "Trattoria Bella",
		CategoryID: &categoryID,
	})

	suite.Assert().Equal(models.SourceManual, transaction.Data.CategorySource)
	suite.Assert().False(transaction.Data.CategorySuggested)
	suite.Assert().Equal(1.0, transaction.Data.CategoryConfidence)

	// Manually categorized transactions never touch the classifier
	suite.Assert().Equal(0, suite.classifier.classifyCalls)
}

func (suite *TestSuiteStandard) TestTransactionsCreateMappingApplied() {
	category := createTestCategory(suite.T(), suite.controller, v1.CategoryEditable{Name: "Coffee"})

	_ = createTestMapping(suite.T(), suite.controller, v1.MappingEditable{
		Pattern:         "Starbucks #552",
		TransactionType: models.TypeExpense,
		CategoryID:      category.Data.ID,
		MatchType:       models.MatchMerchant,
	})

	transaction := createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:   decimal.NewFromFloat(4.5),
		Merchant: "Starbucks #552",
	})

	suite.Require().NotNil(transaction.Data.CategoryID)
	suite.Assert().Equal(category.Data.ID, *transaction.Data.CategoryID)
	suite.Assert().Equal(models.SourceLearned, transaction.Data.CategorySource)
	suite.Assert().True(transaction.Data.CategorySuggested)
	suite.Assert().Equal(0, suite.classifier.classifyCalls, "Learned mapping did not short-circuit the classifier")
}

func (suite *TestSuiteStandard) TestTransactionsCreateClassifierSuggestion() {
	category := createTestCategory(suite.T(), suite.controller, v1.CategoryEditable{Name: "Dining"})
	categoryID := category.Data.ID

	suite.classifier.suggestion = &classifier.Suggestion{CategoryID: &categoryID, Confidence: 0.87}

	transaction := createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:   decimal.NewFromFloat(23.80),
		Merchant: "Trattoria Bella",
	})

	suite.Require().NotNil(transaction.Data.CategoryID)
	suite.Assert().Equal(categoryID, *transaction.Data.CategoryID)
	suite.Assert().Equal(models.SourceAI, transaction.Data.CategorySource)
	suite.Assert().True(transaction.Data.CategorySuggested)
	suite.Assert().Equal(0.87, transaction.Data.CategoryConfidence)
}

func (suite *TestSuiteStandard) TestTransactionsCreateClassifierUnavailable() {
	suite.classifier.err = classifier.ErrUnavailable

	// The transaction is created even when the classifier is down
	transaction := createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:   decimal.NewFromFloat(10),
		Merchant: "Trattoria Bella",
	})

	suite.Assert().Nil(transaction.Data.CategoryID)
}

func (suite *TestSuiteStandard) TestTransactionsGetFilter() {
	category := createTestCategory(suite.T(), suite.controller, v1.CategoryEditable{Name: "Dining"})
	categoryID := category.Data.ID

	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Amount: decimal.NewFromFloat(10), Merchant: "Trattoria Bella", CategoryID: &categoryID, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Amount: decimal.NewFromFloat(20), Merchant: "Starbucks", Date: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)})
	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Type: models.TypeIncome, Amount: decimal.NewFromFloat(3500), Description: "Salary", Date: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)})

	tests := []struct {
		name  string
		query string
		count int
	}{
		{"All", "", 3},
		{"By type", "type=expense", 2},
		{"By merchant", "merchant=bucks", 1},
		{"By description", "description=Salary", 1},
		{"By category", fmt.Sprintf("category=%s", categoryID), 1},
		{"Uncategorized", "uncategorized=true", 2},
		{"From date", "fromDate=2024-02-05", 2},
		{"Until date", "untilDate=2024-02-10", 2},
		{"Exact date", "date=2024-02-10", 1},
		{"Limit", "limit=1", 1},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := request(t, suite.controller, http.MethodGet, fmt.Sprintf("http://example.com/v1/transactions?%s", tt.query), "")
			test.AssertHTTPStatus(t, &r, http.StatusOK)

			var response v1.TransactionListResponse
			test.DecodeResponse(t, &r, &response)
			assert.Len(t, response.Data, tt.count, "Wrong number of transactions for query %q", tt.query)
		})
	}
}

func (suite *TestSuiteStandard) TestTransactionsGetSuggestedFilter() {
	category := createTestCategory(suite.T(), suite.controller, v1.CategoryEditable{Name: "Coffee"})

	_ = createTestMapping(suite.T(), suite.controller, v1.MappingEditable{
		Pattern:         "Starbucks",
		TransactionType: models.TypeExpense,
		CategoryID:      category.Data.ID,
		MatchType:       models.MatchMerchant,
	})

	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Amount: decimal.NewFromFloat(4.5), Merchant: "Starbucks"})
	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Amount: decimal.NewFromFloat(12), Merchant: "Some Corner Shop"})

	r := request(suite.T(), suite.controller, http.MethodGet, "http://example.com/v1/transactions?suggested=true", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.TransactionListResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().Len(response.Data, 1)
	suite.Assert().Equal("Starbucks", response.Data[0].Merchant)
}

func (suite *TestSuiteStandard) TestTransactionsUpdateLearnsMapping() {
	dining := createTestCategory(suite.T(), suite.controller, v1.CategoryEditable{Name: "Dining"})
	coffee := createTestCategory(suite.T(), suite.controller, v1.CategoryEditable{Name: "Coffee"})
	diningID := dining.Data.ID

	suite.classifier.suggestion = &classifier.Suggestion{CategoryID: &diningID, Confidence: 0.7}

	transaction := createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:   decimal.NewFromFloat(4.5),
		Merchant: "Starbucks #552",
	})
	suite.Require().NotNil(transaction.Data.CategoryID)
	suite.Assert().True(transaction.Data.CategorySuggested)

	// The user corrects the suggestion
	r := request(suite.T(), suite.controller, http.MethodPatch, transaction.Data.Links.Self, map[string]any{
		"categoryId": coffee.Data.ID,
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.TransactionResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(models.SourceManual, response.Data.CategorySource)
	suite.Assert().False(response.Data.CategorySuggested)
	suite.Assert().Equal(1.0, response.Data.CategoryConfidence)

	// The correction is recorded as a mapping
	mapping, err := models.FindMapping(models.DB, testUser, "STARBUCKS 552", models.TypeExpense)
	suite.Require().Nil(err)
	suite.Require().NotNil(mapping, "Correction did not create a mapping")
	suite.Assert().Equal(coffee.Data.ID, mapping.CategoryID)

	// Future transactions for the merchant use the mapping
	calls := suite.classifier.classifyCalls
	next := createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:   decimal.NewFromFloat(5.2),
		Merchant: "Starbucks #552",
	})
	suite.Require().NotNil(next.Data.CategoryID)
	suite.Assert().Equal(coffee.Data.ID, *next.Data.CategoryID)
	suite.Assert().Equal(models.SourceLearned, next.Data.CategorySource)
	suite.Assert().Equal(calls, suite.classifier.classifyCalls)
}

func (suite *TestSuiteStandard) TestTransactionsUpdateWithoutCategoryChange() {
	dining := createTestCategory(suite.T(), suite.controller, v1.CategoryEditable{Name: "Dining"})
	diningID := dining.Data.ID

	suite.classifier.suggestion = &classifier.Suggestion{CategoryID: &diningID, Confidence: 0.7}

	transaction := createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:   decimal.NewFromFloat(4.5),
		Merchant: "Starbucks",
	})
	suite.Require().NotNil(transaction.Data.CategoryID)

	// Updating an unrelated field on a suggested transaction is not a
	// correction
	r := request(suite.T(), suite.controller, http.MethodPatch, transaction.Data.Links.Self, map[string]any{
		"description": "Morning coffee",
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.TransactionResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().True(response.Data.CategorySuggested, "Unrelated update confirmed the suggestion")

	mapping, err := models.FindMapping(models.DB, testUser, "STARBUCKS", models.TypeExpense)
	suite.Require().Nil(err)
	suite.Assert().Nil(mapping, "Unrelated update created a mapping")
}

func (suite *TestSuiteStandard) TestTransactionsUpdateBalance() {
	account := createTestAccount(suite.T(), suite.controller, v1.AccountEditable{})
	accountID := account.Data.ID

	transaction := createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:    decimal.NewFromFloat(100),
		AccountID: &accountID,
	})

	r := request(suite.T(), suite.controller, http.MethodPatch, transaction.Data.Links.Self, map[string]any{
		"amount": 60,
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	r = request(suite.T(), suite.controller, http.MethodGet, account.Data.Links.Self, "")
	var reloaded v1.AccountResponse
	test.DecodeResponse(suite.T(), &r, &reloaded)
	suite.Assert().True(decimal.NewFromFloat(-60).Equal(reloaded.Data.Balance), "Balance is %s", reloaded.Data.Balance)
}

func (suite *TestSuiteStandard) TestTransactionsDelete() {
	account := createTestAccount(suite.T(), suite.controller, v1.AccountEditable{})
	accountID := account.Data.ID

	transaction := createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{
		Amount:    decimal.NewFromFloat(25),
		AccountID: &accountID,
	})

	r := request(suite.T(), suite.controller, http.MethodDelete, transaction.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	// Deleting the transaction reverts its balance change
	r = request(suite.T(), suite.controller, http.MethodGet, account.Data.Links.Self, "")
	var reloaded v1.AccountResponse
	test.DecodeResponse(suite.T(), &r, &reloaded)
	suite.Assert().True(reloaded.Data.Balance.IsZero(), "Balance is %s", reloaded.Data.Balance)
}

func (suite *TestSuiteStandard) TestTransactionsSummary() {
	now := time.Now().In(time.UTC)

	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Type: models.TypeIncome, Amount: decimal.NewFromFloat(3500), Date: now})
	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Amount: decimal.NewFromFloat(821.5), Date: now})

	r := request(suite.T(), suite.controller, http.MethodGet, "http://example.com/v1/transactions/summary", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.TransactionSummaryResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().NotNil(response.Data)
	suite.Assert().True(decimal.NewFromFloat(3500).Equal(response.Data.Income), "Income is %s", response.Data.Income)
	suite.Assert().True(decimal.NewFromFloat(821.5).Equal(response.Data.Expense), "Expense is %s", response.Data.Expense)
	suite.Assert().True(decimal.NewFromFloat(2678.5).Equal(response.Data.Net), "Net is %s", response.Data.Net)
}

func (suite *TestSuiteStandard) TestTransactionsCategorize() {
	coffee := createTestCategory(suite.T(), suite.controller, v1.CategoryEditable{Name: "Coffee"})

	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Amount: decimal.NewFromFloat(4.5), Merchant: "Starbucks"})
	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Amount: decimal.NewFromFloat(12), Merchant: "Some Corner Shop"})

	// The mapping is created after the transactions, so they are still
	// uncategorized
	_ = createTestMapping(suite.T(), suite.controller, v1.MappingEditable{
		Pattern:         "Starbucks",
		TransactionType: models.TypeExpense,
		CategoryID:      coffee.Data.ID,
		MatchType:       models.MatchMerchant,
	})

	r := request(suite.T(), suite.controller, http.MethodPost, "http://example.com/v1/transactions/categorize", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.CategorizeResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().NotNil(response.Data)
	suite.Assert().Equal(2, response.Data.Processed)
	suite.Assert().Equal(1, response.Data.Categorized)
}

func (suite *TestSuiteStandard) TestTransactionsRecategorizeMerchant() {
	coffee := createTestCategory(suite.T(), suite.controller, v1.CategoryEditable{Name: "Coffee"})

	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Amount: decimal.NewFromFloat(4.5), Merchant: "Starbucks #552"})
	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Amount: decimal.NewFromFloat(5.1), Merchant: "Starbucks #552"})
	_ = createTestTransaction(suite.T(), suite.controller, v1.TransactionEditable{Amount: decimal.NewFromFloat(9), Merchant: "Peets"})

	r := request(suite.T(), suite.controller, http.MethodPost, "http://example.com/v1/transactions/recategorize-merchant", v1.RecategorizeMerchantEditable{
		Merchant:   "Starbucks #552",
		CategoryID: coffee.Data.ID,
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.RecategorizeMerchantResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().NotNil(response.Data)
	suite.Assert().Equal(2, response.Data.Updated)

	// The decision is persisted as a mapping
	mapping, err := models.FindMapping(models.DB, testUser, "STARBUCKS 552", models.TypeExpense)
	suite.Require().Nil(err)
	suite.Require().NotNil(mapping)
	suite.Assert().Equal(coffee.Data.ID, mapping.CategoryID)
}

func (suite *TestSuiteStandard) TestTransactionsRecategorizeMerchantErrors() {
	category := createTestCategory(suite.T(), suite.controller, v1.CategoryEditable{})

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"Merchant missing", map[string]any{"categoryId": category.Data.ID}, http.StatusBadRequest},
		{"Category missing", map[string]any{"merchant": "Starbucks"}, http.StatusBadRequest},
		{"Pattern empty", map[string]any{"merchant": " #!? ", "categoryId": category.Data.ID}, http.StatusBadRequest},
		{"Transfer type", map[string]any{"merchant": "Starbucks", "categoryId": category.Data.ID, "type": "transfer"}, http.StatusBadRequest},
		{"Unknown category", map[string]any{"merchant": "Starbucks", "categoryId": uuid.New()}, http.StatusNotFound},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := request(t, suite.controller, http.MethodPost, "http://example.com/v1/transactions/recategorize-merchant", tt.body)
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

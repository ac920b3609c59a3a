package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/money-magnet/backend/internal/models"
	mm_uuid "github.com/money-magnet/backend/internal/uuid"
)

// BudgetEditable represents all user configurable parameters
type BudgetEditable struct {
	CategoryID uuid.UUID           `json:"categoryId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"`                         // ID of the category the budget limits
	Amount     decimal.Decimal     `json:"amount" example:"350" minimum:"0.00000001" maximum:"999999999999.99999999"`         // The spending limit for one period
	Period     models.BudgetPeriod `json:"period" example:"monthly" default:"monthly" enums:"weekly,monthly,yearly"`          // Recurrence of the budget
	StartDate  time.Time           `json:"startDate" example:"2024-02-01T00:00:00Z"`                                          // Date the budget starts at. Defaults to now.
}

func (editable BudgetEditable) model(userID string) models.Budget {
	return models.Budget{
		UserID:     userID,
		CategoryID: editable.CategoryID,
		Amount:     editable.Amount,
		Period:     editable.Period,
		StartDate:  editable.StartDate,
	}
}

type BudgetLinks struct {
	Self     string `json:"self" example:"https://example.com/api/v1/budgets/438cc6c0-9baf-49fd-a75a-d76bd5cab19c"`                 // The budget itself
	Category string `json:"category" example:"https://example.com/api/v1/categories/3b1ea324-d438-4419-882a-2fc91d71772f"` // The category the budget limits
}

type Budget struct {
	models.DefaultModel
	BudgetEditable
	Links BudgetLinks `json:"links"`

	// These fields are computed
	Spent     decimal.Decimal `json:"spent" example:"127.42"`     // Sum of expenses for the category in the current period
	Remaining decimal.Decimal `json:"remaining" example:"222.58"` // Amount still available in the current period
}

func newBudget(c *gin.Context, db *gorm.DB, model models.Budget) (Budget, error) {
	url := c.GetString(string(models.ContextURL))

	spent, err := model.Spent(db, time.Now())
	if err != nil {
		return Budget{}, err
	}

	return Budget{
		DefaultModel: model.DefaultModel,
		BudgetEditable: BudgetEditable{
			CategoryID: model.CategoryID,
			Amount:     model.Amount,
			Period:     model.Period,
			StartDate:  model.StartDate,
		},
		Spent:     spent,
		Remaining: model.Amount.Sub(spent),
		Links: BudgetLinks{
			Self:     fmt.Sprintf("%s/v1/budgets/%s", url, model.ID),
			Category: fmt.Sprintf("%s/v1/categories/%s", url, model.CategoryID),
		},
	}, nil
}

type BudgetListResponse struct {
	Data       []Budget    `json:"data"`                                                          // List of budgets
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type BudgetCreateResponse struct {
	Data  []BudgetResponse `json:"data"`                                                          // List of the created Budgets or their respective error
	Error *string          `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (r *BudgetCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	r.Data = append(r.Data, BudgetResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type BudgetResponse struct {
	Data  *Budget `json:"data"`                                                          // Data for the Budget
	Error *string `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type BudgetQueryFilter struct {
	CategoryID mm_uuid.UUID        `form:"category"`                   // By ID of the category
	Period     models.BudgetPeriod `form:"period"`                     // By period
	Offset     uint                `form:"offset" filterField:"false"` // The offset of the first Budget returned. Defaults to 0.
	Limit      int                 `form:"limit" filterField:"false"`  // Maximum number of Budgets to return. Defaults to 50.
}

func (f BudgetQueryFilter) model() models.Budget {
	return models.Budget{
		CategoryID: f.CategoryID.UUID,
		Period:     f.Period,
	}
}

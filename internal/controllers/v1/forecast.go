package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/money-magnet/backend/internal/httputil"
	"github.com/money-magnet/backend/internal/models"
)

// RegisterForecastRoutes registers the routes for the balance forecast with
// the RouterGroup that is passed.
func (co Controller) RegisterForecastRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", co.OptionsForecast)
	r.GET("", co.GetForecast)
}

// ForecastCurrentMonth describes the spending behavior in the current
// month that the projection is based on.
type ForecastCurrentMonth struct {
	Income          decimal.Decimal `json:"income" example:"3500"`          // Income in the current month so far
	Expense         decimal.Decimal `json:"expense" example:"1421.77"`      // Expenses in the current month so far
	Net             decimal.Decimal `json:"net" example:"2078.23"`          // Income minus expense
	DaysRemaining   int             `json:"daysRemaining" example:"12"`     // Days left in the current month
	AvgDailyIncome  decimal.Decimal `json:"avgDailyIncome" example:"194.4"` // Average income per day this month
	AvgDailyExpense decimal.Decimal `json:"avgDailyExpense" example:"78.9"` // Average expense per day this month
}

type Forecast struct {
	CurrentBalance   decimal.Decimal      `json:"currentBalance" example:"2735.17"`    // Sum of the balances of all open accounts
	CurrentMonth     ForecastCurrentMonth `json:"currentMonth"`                        // Current month figures
	TargetDate       string               `json:"targetDate" example:"2024-06-01"`     // The date the projection is calculated for
	ProjectedBalance decimal.Decimal      `json:"projectedBalance" example:"4102.33"`  // Expected balance at the target date
	ProjectedIncome  decimal.Decimal      `json:"projectedIncome" example:"3110.4"`    // Expected income until the target date
	ProjectedExpense decimal.Decimal      `json:"projectedExpense" example:"1743.24"`  // Expected expenses until the target date
	MonthsDiff       int                  `json:"monthsDiff,omitempty" example:"4"`    // Full months between now and the target date. Only set for targets outside the current month.
}

type ForecastResponse struct {
	Data  *Forecast `json:"data"`                                               // The forecast
	Error *string   `json:"error" example:"the targetDate query parameter must be set"` // The error, if any occurred
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Forecast
// @Success		204
// @Router			/v1/forecast [options]
func (co Controller) OptionsForecast(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Balance forecast
// @Description	Projects the total balance to a future date. Targets in the current month use the month's average daily income and expense, later targets use historical monthly averages.
// @Tags			Forecast
// @Produce		json
// @Success		200	{object}	ForecastResponse
// @Failure		400	{object}	ForecastResponse
// @Failure		500	{object}	ForecastResponse
// @Param			targetDate	query	string	true	"Date to project the balance to, in YYYY-MM-DD format"
// @Router			/v1/forecast [get]
func (co Controller) GetForecast(c *gin.Context) {
	targetDate := c.Query("targetDate")
	if targetDate == "" {
		s := errTargetDateNotSet.Error()
		c.JSON(http.StatusBadRequest, ForecastResponse{
			Error: &s,
		})
		return
	}

	target, err := time.ParseInLocation("2006-01-02", targetDate, time.UTC)
	if err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, ForecastResponse{
			Error: &s,
		})
		return
	}

	today := time.Now().In(time.UTC)
	if target.Before(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)) {
		s := errTargetDateInPast.Error()
		c.JSON(http.StatusBadRequest, ForecastResponse{
			Error: &s,
		})
		return
	}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	income, expense, net, err := models.TransactionsSum(models.DB, userID(c), monthStart, monthEnd)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ForecastResponse{
			Error: &s,
		})
		return
	}

	balance, err := models.AccountsBalance(models.DB, userID(c))
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ForecastResponse{
			Error: &s,
		})
		return
	}

	currentDay := decimal.NewFromInt(int64(today.Day()))
	avgDailyIncome := income.Div(currentDay)
	avgDailyExpense := expense.Div(currentDay)

	forecast := Forecast{
		CurrentBalance: balance,
		CurrentMonth: ForecastCurrentMonth{
			Income:          income,
			Expense:         expense,
			Net:             net,
			DaysRemaining:   monthEnd.Day() - today.Day(),
			AvgDailyIncome:  avgDailyIncome,
			AvgDailyExpense: avgDailyExpense,
		},
		TargetDate: targetDate,
	}

	if target.Year() == today.Year() && target.Month() == today.Month() {
		// Project within the current month from its daily averages
		daysUntilTarget := decimal.NewFromInt(int64(target.Day() - today.Day()))

		forecast.ProjectedIncome = avgDailyIncome.Mul(daysUntilTarget)
		forecast.ProjectedExpense = avgDailyExpense.Mul(daysUntilTarget)
	} else {
		// Project further targets from historical monthly averages
		monthsDiff := (target.Year()-today.Year())*12 + int(target.Month()-today.Month())

		avgMonthlyIncome, avgMonthlyExpense, err := models.MonthlyAverages(models.DB, userID(c), monthStart)
		if err != nil {
			s := err.Error()
			c.JSON(status(err), ForecastResponse{
				Error: &s,
			})
			return
		}

		months := decimal.NewFromInt(int64(monthsDiff))
		forecast.ProjectedIncome = avgMonthlyIncome.Mul(months)
		forecast.ProjectedExpense = avgMonthlyExpense.Mul(months)
		forecast.MonthsDiff = monthsDiff
	}

	forecast.ProjectedBalance = balance.Add(forecast.ProjectedIncome).Sub(forecast.ProjectedExpense)

	c.JSON(http.StatusOK, ForecastResponse{Data: &forecast})
}

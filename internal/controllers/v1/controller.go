// Package v1 implements the v1 API.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/money-magnet/backend/internal/categorizer"
	"github.com/money-magnet/backend/internal/httputil"
	"github.com/money-magnet/backend/internal/models"
)

// Controller holds the dependencies of the request handlers.
type Controller struct {
	Engine *categorizer.Engine
}

type Links struct {
	Accounts     string `json:"accounts" example:"https://example.com/api/v1/accounts"`         // URL of the account endpoints
	Budgets      string `json:"budgets" example:"https://example.com/api/v1/budgets"`           // URL of the budget endpoints
	Categories   string `json:"categories" example:"https://example.com/api/v1/categories"`     // URL of the category endpoints
	Forecast     string `json:"forecast" example:"https://example.com/api/v1/forecast"`         // URL of the forecast endpoint
	Mappings     string `json:"mappings" example:"https://example.com/api/v1/mappings"`         // URL of the category mapping endpoints
	Transactions string `json:"transactions" example:"https://example.com/api/v1/transactions"` // URL of the transaction endpoints
}

type Response struct {
	Links Links `json:"links"` // Links for the v1 API
}

// @Summary		v1 API
// @Description	Returns general information about the v1 API
// @Tags			General
// @Success		200	{object}	Response
// @Router			/v1 [get]
func Get(c *gin.Context) {
	url := c.GetString(string(models.ContextURL)) + "/v1"

	c.JSON(http.StatusOK, Response{
		Links: Links{
			Accounts:     url + "/accounts",
			Budgets:      url + "/budgets",
			Categories:   url + "/categories",
			Forecast:     url + "/forecast",
			Mappings:     url + "/mappings",
			Transactions: url + "/transactions",
		},
	})
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			General
// @Success		204
// @Router			/v1 [options]
func Options(c *gin.Context) {
	httputil.OptionsGet(c)
}

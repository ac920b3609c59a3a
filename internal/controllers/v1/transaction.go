package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"

	"github.com/money-magnet/backend/internal/httputil"
	"github.com/money-magnet/backend/internal/models"
)

// RegisterTransactionRoutes registers the routes for transactions with
// the RouterGroup that is passed.
func (co Controller) RegisterTransactionRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", co.OptionsTransactionList)
		r.GET("", co.GetTransactions)
		r.POST("", co.CreateTransactions)
	}

	// Operations on the transaction collection
	{
		r.OPTIONS("/summary", co.OptionsTransactionSummary)
		r.GET("/summary", co.GetTransactionSummary)
		r.OPTIONS("/categorize", co.OptionsTransactionCategorize)
		r.POST("/categorize", co.CategorizeTransactions)
		r.OPTIONS("/recategorize-merchant", co.OptionsRecategorizeMerchant)
		r.POST("/recategorize-merchant", co.RecategorizeMerchant)
	}

	// Transaction with ID
	{
		r.OPTIONS("/:id", co.OptionsTransactionDetail)
		r.GET("/:id", co.GetTransaction)
		r.PATCH("/:id", co.UpdateTransaction)
		r.DELETE("/:id", co.DeleteTransaction)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Router			/v1/transactions [options]
func (co Controller) OptionsTransactionList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Router			/v1/transactions/summary [options]
func (co Controller) OptionsTransactionSummary(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Router			/v1/transactions/categorize [options]
func (co Controller) OptionsTransactionCategorize(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Router			/v1/transactions/recategorize-merchant [options]
func (co Controller) OptionsRecategorizeMerchant(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/transactions/{id} [options]
func (co Controller) OptionsTransactionDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.DB.First(&models.Transaction{}, "id = ? AND user_id = ?", uri.ID.UUID, userID(c)).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create transactions
// @Description	Creates new transactions. Transactions without a category are run through the categorization pipeline.
// @Tags			Transactions
// @Produce		json
// @Success		201				{object}	TransactionCreateResponse
// @Failure		400				{object}	TransactionCreateResponse
// @Failure		404				{object}	TransactionCreateResponse
// @Failure		500				{object}	TransactionCreateResponse
// @Param			transactions	body		[]TransactionEditable	true	"Transactions"
// @Router			/v1/transactions [post]
func (co Controller) CreateTransactions(c *gin.Context) {
	var editables []TransactionEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), TransactionCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := TransactionCreateResponse{}

	for _, editable := range editables {
		transaction := editable.model(userID(c))

		err = models.DB.Create(&transaction).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		err = models.ApplyTransactionBalance(models.DB, transaction.AccountID, transaction.Type, transaction.Amount, false)
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		// Run the categorization pipeline for transactions without a
		// category. It must never fail the creation.
		if transaction.CategoryID == nil {
			err = co.Engine.Categorize(c.Request.Context(), &transaction)
			if err != nil {
				log.Warn().
					Err(err).
					Str("request-id", requestid.Get(c)).
					Str("transaction-id", transaction.ID.String()).
					Msg("categorization failed, transaction created without category")
			}
		}

		data := newTransaction(c, transaction)
		r.Data = append(r.Data, TransactionResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get transactions
// @Description	Returns a list of transactions
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	TransactionListResponse
// @Failure		400	{object}	TransactionListResponse
// @Failure		500	{object}	TransactionListResponse
// @Router			/v1/transactions [get]
// @Param			date			query	string	false	"Date of the transaction"
// @Param			fromDate		query	string	false	"Transactions at or after this date"
// @Param			untilDate		query	string	false	"Transactions before or at this date"
// @Param			type			query	string	false	"Filter by transaction type"
// @Param			account			query	string	false	"Filter by account ID"
// @Param			category		query	string	false	"Filter by category ID"
// @Param			merchant		query	string	false	"Filter by merchant"
// @Param			description		query	string	false	"Filter by description"
// @Param			uncategorized	query	bool	false	"Only transactions without a category"
// @Param			suggested		query	bool	false	"Only transactions with an unconfirmed category suggestion"
// @Param			offset			query	uint	false	"The offset of the first Transaction returned. Defaults to 0."
// @Param			limit			query	int		false	"Maximum number of Transactions to return. Defaults to 50."
func (co Controller) GetTransactions(c *gin.Context) {
	var filter TransactionQueryFilter

	// Every parameter is bound into a string, so this will always succeed
	_ = c.Bind(&filter)

	// Get the fields that we are filtering for
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	q := models.DB.
		Order("date(date) DESC, created_at DESC").
		Where("user_id = ?", userID(c)).
		Where(filter.model(), queryFields...)

	if !filter.Date.IsZero() {
		q = q.Where("date(date) = date(?)", filter.Date)
	}

	if !filter.FromDate.IsZero() {
		q = q.Where("date(date) >= date(?)", filter.FromDate)
	}

	if !filter.UntilDate.IsZero() {
		q = q.Where("date(date) <= date(?)", filter.UntilDate)
	}

	if filter.AccountID.UUID != uuid.Nil {
		q = q.Where("account_id = ?", filter.AccountID.UUID)
	}

	if filter.CategoryID.UUID != uuid.Nil {
		q = q.Where("category_id = ?", filter.CategoryID.UUID)
	}

	if filter.Merchant != "" {
		q = q.Where("merchant LIKE ?", "%"+filter.Merchant+"%")
	}

	if filter.Description != "" {
		q = q.Where("description LIKE ?", "%"+filter.Description+"%")
	}

	if slices.Contains(setFields, "Uncategorized") && filter.Uncategorized {
		q = q.Where("category_id IS NULL")
	}

	if slices.Contains(setFields, "CategorySuggested") {
		q = q.Where("category_suggested = ?", filter.CategorySuggested)
	}

	// Set the offset. Does not need checking since the default is 0
	q = q.Offset(int(filter.Offset))

	// Default to 50 Transactions and set the limit
	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}
	q = q.Limit(limit)

	var transactions []models.Transaction
	err := q.Find(&transactions).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), TransactionListResponse{
			Error: &e,
		})
		return
	}

	data := make([]Transaction, 0)
	for _, transaction := range transactions {
		data = append(data, newTransaction(c, transaction))
	}

	c.JSON(http.StatusOK, TransactionListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get transaction
// @Description	Returns a specific transaction
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	TransactionResponse
// @Failure		400	{object}	TransactionResponse
// @Failure		404	{object}	TransactionResponse
// @Failure		500	{object}	TransactionResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/transactions/{id} [get]
func (co Controller) GetTransaction(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	var transaction models.Transaction
	err = models.DB.First(&transaction, "id = ? AND user_id = ?", uri.ID.UUID, userID(c)).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	data := newTransaction(c, transaction)
	c.JSON(http.StatusOK, TransactionResponse{Data: &data})
}

// @Summary		Update transaction
// @Description	Updates an existing transaction. Only values to be updated need to be specified. Setting the category confirms it and feeds the correction learner.
// @Tags			Transactions
// @Accept			json
// @Produce		json
// @Success		200			{object}	TransactionResponse
// @Failure		400			{object}	TransactionResponse
// @Failure		404			{object}	TransactionResponse
// @Failure		500			{object}	TransactionResponse
// @Param			id			path		URIID				true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			transaction	body		TransactionEditable	true	"Transaction"
// @Router			/v1/transactions/{id} [patch]
func (co Controller) UpdateTransaction(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	var transaction models.Transaction
	err = models.DB.First(&transaction, "id = ? AND user_id = ?", uri.ID.UUID, userID(c)).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	// Keep the state before the update for balance bookkeeping and the
	// correction learner
	previous := transaction

	updateFields, err := httputil.GetBodyFields(c, TransactionEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	var data TransactionEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	// A category set by the user is a manual, confirmed decision, so the
	// provenance columns are updated together with the category
	categoryChanged := slices.Contains(updateFields, any("CategoryID"))
	if categoryChanged {
		updateFields = append(updateFields, "CategorySource", "CategorySuggested", "CategoryConfidence")
	}

	// When balance relevant fields change, the old transaction is removed
	// from the account balance and the new state applied afterwards
	balanceChanged := slices.Contains(updateFields, any("Amount")) ||
		slices.Contains(updateFields, any("Type")) ||
		slices.Contains(updateFields, any("AccountID"))

	if balanceChanged {
		err = models.ApplyTransactionBalance(models.DB, previous.AccountID, previous.Type, previous.Amount, true)
		if err != nil {
			s := err.Error()
			c.JSON(status(err), TransactionResponse{
				Error: &s,
			})
			return
		}
	}

	err = models.DB.Model(&transaction).Select("", updateFields...).Updates(data.model(transaction.UserID)).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{
			Error: &s,
		})
		return
	}

	if balanceChanged {
		err = models.ApplyTransactionBalance(models.DB, transaction.AccountID, transaction.Type, transaction.Amount, false)
		if err != nil {
			s := err.Error()
			c.JSON(status(err), TransactionResponse{
				Error: &s,
			})
			return
		}
	}

	// Feed the correction learner when the user changed the category
	if categoryChanged {
		err = co.Engine.LearnCorrection(c.Request.Context(), previous, transaction)
		if err != nil {
			log.Warn().
				Err(err).
				Str("request-id", requestid.Get(c)).
				Str("transaction-id", transaction.ID.String()).
				Msg("learning from category correction failed")
		}
	}

	r := newTransaction(c, transaction)
	c.JSON(http.StatusOK, TransactionResponse{Data: &r})
}

// @Summary		Delete transaction
// @Description	Deletes a transaction and removes it from the account balance
// @Tags			Transactions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/transactions/{id} [delete]
func (co Controller) DeleteTransaction(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var transaction models.Transaction
	err = models.DB.First(&transaction, "id = ? AND user_id = ?", uri.ID.UUID, userID(c)).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.ApplyTransactionBalance(models.DB, transaction.AccountID, transaction.Type, transaction.Amount, true)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.DB.Delete(&transaction).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// @Summary		Transaction summary
// @Description	Returns the income, expense and net sums for a date range. Both dates are inclusive.
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	TransactionSummaryResponse
// @Failure		400	{object}	TransactionSummaryResponse
// @Failure		500	{object}	TransactionSummaryResponse
// @Param			fromDate	query	string	false	"Start of the range. Defaults to the start of the current month."
// @Param			untilDate	query	string	false	"End of the range. Defaults to today."
// @Router			/v1/transactions/summary [get]
func (co Controller) GetTransactionSummary(c *gin.Context) {
	var filter struct {
		FromDate  time.Time `form:"fromDate" time_format:"2006-01-02" time_utc:"1"`
		UntilDate time.Time `form:"untilDate" time_format:"2006-01-02" time_utc:"1"`
	}

	if err := c.Bind(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, TransactionSummaryResponse{
			Error: &s,
		})
		return
	}

	now := time.Now().In(time.UTC)
	if filter.UntilDate.IsZero() {
		filter.UntilDate = now
	}
	if filter.FromDate.IsZero() {
		filter.FromDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	income, expense, net, err := models.TransactionsSum(models.DB, userID(c), filter.FromDate, filter.UntilDate)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionSummaryResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, TransactionSummaryResponse{
		Data: &TransactionSummary{
			Income:  income,
			Expense: expense,
			Net:     net,
		},
	})
}

// @Summary		Categorize transactions
// @Description	Runs the categorization pipeline for all uncategorized transactions of the user
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	CategorizeResponse
// @Failure		500	{object}	CategorizeResponse
// @Router			/v1/transactions/categorize [post]
func (co Controller) CategorizeTransactions(c *gin.Context) {
	var transactions []models.Transaction
	err := models.DB.
		Where("user_id = ? AND category_id IS NULL AND type != ?", userID(c), models.TypeTransfer).
		Find(&transactions).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), CategorizeResponse{
			Error: &s,
		})
		return
	}

	refs := make([]*models.Transaction, 0, len(transactions))
	for i := range transactions {
		refs = append(refs, &transactions[i])
	}

	categorized, err := co.Engine.CategorizeBatch(c.Request.Context(), refs)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), CategorizeResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, CategorizeResponse{
		Data: &CategorizeResult{
			Processed:   len(refs),
			Categorized: categorized,
		},
	})
}

// @Summary		Recategorize merchant
// @Description	Assigns a category to all matching transactions of a merchant and records the decision as a mapping
// @Tags			Transactions
// @Accept			json
// @Produce		json
// @Success		200		{object}	RecategorizeMerchantResponse
// @Failure		400		{object}	RecategorizeMerchantResponse
// @Failure		404		{object}	RecategorizeMerchantResponse
// @Failure		500		{object}	RecategorizeMerchantResponse
// @Param			request	body		RecategorizeMerchantEditable	true	"Bulk correction"
// @Router			/v1/transactions/recategorize-merchant [post]
func (co Controller) RecategorizeMerchant(c *gin.Context) {
	var data RecategorizeMerchantEditable

	err := httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RecategorizeMerchantResponse{
			Error: &s,
		})
		return
	}

	if data.Merchant == "" {
		s := errMerchantNotSet.Error()
		c.JSON(http.StatusBadRequest, RecategorizeMerchantResponse{
			Error: &s,
		})
		return
	}

	if data.CategoryID == uuid.Nil {
		s := errCategoryIDParameter.Error()
		c.JSON(http.StatusBadRequest, RecategorizeMerchantResponse{
			Error: &s,
		})
		return
	}

	if data.Type == "" {
		data.Type = models.TypeExpense
	}

	if data.Type != models.TypeIncome && data.Type != models.TypeExpense {
		s := models.ErrMappingTypeInvalid.Error()
		c.JSON(http.StatusBadRequest, RecategorizeMerchantResponse{
			Error: &s,
		})
		return
	}

	updated, err := co.Engine.CorrectMerchant(c.Request.Context(), userID(c), data.Merchant, data.CategoryID, data.Type)
	if err != nil {
		if errors.Is(err, models.ErrMappingPatternEmpty) {
			s := err.Error()
			c.JSON(http.StatusBadRequest, RecategorizeMerchantResponse{
				Error: &s,
			})
			return
		}

		s := err.Error()
		c.JSON(status(err), RecategorizeMerchantResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, RecategorizeMerchantResponse{
		Data: &RecategorizeMerchantResult{
			Updated: updated,
		},
	})
}

package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ryanuber/go-glob"
	"golang.org/x/exp/slices"

	"github.com/money-magnet/backend/internal/httputil"
	"github.com/money-magnet/backend/internal/models"
	"github.com/money-magnet/backend/internal/pattern"
)

// RegisterMappingRoutes registers the routes for category mappings with
// the RouterGroup that is passed.
func (co Controller) RegisterMappingRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", co.OptionsMappingList)
		r.GET("", co.GetMappings)
		r.POST("", co.CreateMappings)
	}

	// Mapping with ID
	{
		r.OPTIONS("/:id", co.OptionsMappingDetail)
		r.GET("/:id", co.GetMapping)
		r.PATCH("/:id", co.UpdateMapping)
		r.DELETE("/:id", co.DeleteMapping)
	}
}

// RegisterMappingWebhookRoutes registers the webhook endpoints used by the
// workflow automation service. These identify the user through the request
// body instead of the authentication header.
func (co Controller) RegisterMappingWebhookRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/check", co.OptionsMappingCheck)
	r.POST("/check", co.CheckMapping)
	r.OPTIONS("/save", co.OptionsMappingSave)
	r.POST("/save", co.SaveMapping)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Mappings
// @Success		204
// @Router			/v1/mappings [options]
func (co Controller) OptionsMappingList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Mappings
// @Success		204
// @Router			/v1/mappings/check [options]
func (co Controller) OptionsMappingCheck(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Mappings
// @Success		204
// @Router			/v1/mappings/save [options]
func (co Controller) OptionsMappingSave(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Mappings
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/mappings/{id} [options]
func (co Controller) OptionsMappingDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.DB.First(&models.CategoryMapping{}, "id = ? AND user_id = ?", uri.ID.UUID, userID(c)).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create mappings
// @Description	Creates mappings from the list of submitted mapping data. Patterns are normalized before they are stored.
// @Tags			Mappings
// @Produce		json
// @Success		201			{object}	MappingCreateResponse
// @Failure		400			{object}	MappingCreateResponse
// @Failure		404			{object}	MappingCreateResponse
// @Failure		500			{object}	MappingCreateResponse
// @Param			mappings	body		[]MappingEditable	true	"Mappings"
// @Router			/v1/mappings [post]
func (co Controller) CreateMappings(c *gin.Context) {
	var editables []MappingEditable

	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MappingCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := MappingCreateResponse{}

	for _, editable := range editables {
		key := pattern.Normalize(editable.Pattern)
		if key == "" {
			status = r.appendError(models.ErrMappingPatternEmpty, status)
			continue
		}

		matchType := editable.MatchType
		if matchType == "" {
			matchType = models.MatchMerchant
		}

		var category models.Category
		err := models.DB.First(&category, "id = ? AND user_id = ?", editable.CategoryID, userID(c)).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		mapping, err := models.UpsertMapping(models.DB, models.UpsertMappingParams{
			UserID:          userID(c),
			Pattern:         key,
			TransactionType: editable.TransactionType,
			CategoryID:      category.ID,
			CategoryName:    category.Name,
			MatchType:       matchType,
			Confidence:      editable.Confidence,
		})
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newMapping(c, *mapping)
		r.Data = append(r.Data, MappingResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get mappings
// @Description	Returns a list of category mappings
// @Tags			Mappings
// @Produce		json
// @Success		200	{object}	MappingListResponse
// @Failure		400	{object}	MappingListResponse
// @Failure		500	{object}	MappingListResponse
// @Router			/v1/mappings [get]
// @Param			pattern		query	string	false	"Filter by pattern. Supports globbing, e.g. STARBUCKS*"
// @Param			type		query	string	false	"Filter by transaction type"
// @Param			matchType	query	string	false	"Filter by match type"
// @Param			offset		query	uint	false	"The offset of the first Mapping returned. Defaults to 0."
// @Param			limit		query	int		false	"Maximum number of Mappings to return. Defaults to 50."
func (co Controller) GetMappings(c *gin.Context) {
	var filter MappingQueryFilter

	// Every parameter is bound into a string, so this will always succeed
	_ = c.Bind(&filter)

	// Get the fields that we are filtering for
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	q := models.DB.
		Order("usage_count DESC, pattern ASC").
		Where("user_id = ?", userID(c)).
		Where(filter.model(), queryFields...)

	var mappings []models.CategoryMapping
	err := q.Find(&mappings).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingListResponse{
			Error: &s,
		})
		return
	}

	// The pattern filter supports globbing, which the database does not,
	// so it is applied after the query. Stored patterns are uppercase.
	if filter.Pattern != "" {
		var matched []models.CategoryMapping
		for _, mapping := range mappings {
			if glob.Glob(strings.ToUpper(filter.Pattern), mapping.Pattern) {
				matched = append(matched, mapping)
			}
		}
		mappings = matched
	}

	count := int64(len(mappings))

	// Pagination over the filtered set
	offset := int(filter.Offset)
	if offset > len(mappings) {
		offset = len(mappings)
	}
	mappings = mappings[offset:]

	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}
	if limit >= 0 && limit < len(mappings) {
		mappings = mappings[:limit]
	}

	data := make([]Mapping, 0)
	for _, mapping := range mappings {
		data = append(data, newMapping(c, mapping))
	}

	c.JSON(http.StatusOK, MappingListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get mapping
// @Description	Returns a specific category mapping
// @Tags			Mappings
// @Produce		json
// @Success		200	{object}	MappingResponse
// @Failure		400	{object}	MappingResponse
// @Failure		404	{object}	MappingResponse
// @Failure		500	{object}	MappingResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/mappings/{id} [get]
func (co Controller) GetMapping(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingResponse{
			Error: &s,
		})
		return
	}

	var mapping models.CategoryMapping
	err = models.DB.First(&mapping, "id = ? AND user_id = ?", uri.ID.UUID, userID(c)).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingResponse{
			Error: &s,
		})
		return
	}

	data := newMapping(c, mapping)
	c.JSON(http.StatusOK, MappingResponse{Data: &data})
}

// @Summary		Update mapping
// @Description	Updates an existing mapping. Only values to be updated need to be specified. Pattern updates are normalized.
// @Tags			Mappings
// @Accept			json
// @Produce		json
// @Success		200		{object}	MappingResponse
// @Failure		400		{object}	MappingResponse
// @Failure		404		{object}	MappingResponse
// @Failure		500		{object}	MappingResponse
// @Param			id		path		URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			mapping	body		MappingEditable	true	"Mapping"
// @Router			/v1/mappings/{id} [patch]
func (co Controller) UpdateMapping(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingResponse{
			Error: &s,
		})
		return
	}

	var mapping models.CategoryMapping
	err = models.DB.First(&mapping, "id = ? AND user_id = ?", uri.ID.UUID, userID(c)).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingResponse{
			Error: &s,
		})
		return
	}

	updateFields, err := httputil.GetBodyFields(c, MappingEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingResponse{
			Error: &s,
		})
		return
	}

	var data MappingEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingResponse{
			Error: &s,
		})
		return
	}

	update := models.CategoryMapping{
		Pattern:         pattern.Normalize(data.Pattern),
		TransactionType: data.TransactionType,
		CategoryID:      data.CategoryID,
		MatchType:       data.MatchType,
		Confidence:      data.Confidence,
	}

	// The cached category name follows the category
	if slices.Contains(updateFields, any("CategoryID")) {
		var category models.Category
		err := models.DB.First(&category, "id = ? AND user_id = ?", data.CategoryID, userID(c)).Error
		if err != nil {
			s := err.Error()
			c.JSON(status(err), MappingResponse{
				Error: &s,
			})
			return
		}

		update.CategoryName = category.Name
		updateFields = append(updateFields, "CategoryName")
	}

	err = models.DB.Model(&mapping).Select("", updateFields...).Updates(update).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingResponse{
			Error: &s,
		})
		return
	}

	r := newMapping(c, mapping)
	c.JSON(http.StatusOK, MappingResponse{Data: &r})
}

// @Summary		Delete mapping
// @Description	Deletes a mapping. Transactions already categorized through it keep their category.
// @Tags			Mappings
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/mappings/{id} [delete]
func (co Controller) DeleteMapping(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var mapping models.CategoryMapping
	err = models.DB.First(&mapping, "id = ? AND user_id = ?", uri.ID.UUID, userID(c)).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.DB.Delete(&mapping).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// @Summary		Check mapping
// @Description	Webhook for the workflow automation service. Returns the learned mapping for a pattern if one exists.
// @Tags			Mappings
// @Accept			json
// @Produce		json
// @Success		200		{object}	MappingCheckResponse
// @Failure		400		{object}	MappingCheckResponse
// @Failure		500		{object}	MappingCheckResponse
// @Param			request	body		MappingCheckRequest	true	"Lookup request"
// @Router			/v1/mappings/check [post]
func (co Controller) CheckMapping(c *gin.Context) {
	var request MappingCheckRequest

	err := httputil.BindData(c, &request)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingCheckResponse{
			Error: &s,
		})
		return
	}

	if request.TransactionType == "" {
		request.TransactionType = models.TypeExpense
	}

	mapping, err := models.FindMapping(models.DB, request.UserID, pattern.Normalize(request.Pattern), request.TransactionType)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingCheckResponse{
			Error: &s,
		})
		return
	}

	if mapping == nil {
		c.JSON(http.StatusOK, MappingCheckResponse{
			MappingFound: false,
		})
		return
	}

	c.JSON(http.StatusOK, MappingCheckResponse{
		MappingFound: true,
		CategoryID:   &mapping.CategoryID,
		CategoryName: mapping.CategoryName,
		Confidence:   mapping.Confidence,
	})
}

// @Summary		Save mapping
// @Description	Webhook for the workflow automation service. Persists a categorization decision as a mapping for the referenced category.
// @Tags			Mappings
// @Accept			json
// @Produce		json
// @Success		201		{object}	MappingSaveResponse
// @Failure		400		{object}	MappingSaveResponse
// @Failure		404		{object}	MappingSaveResponse
// @Failure		500		{object}	MappingSaveResponse
// @Param			request	body		MappingSaveRequest	true	"Mapping to save"
// @Router			/v1/mappings/save [post]
func (co Controller) SaveMapping(c *gin.Context) {
	var request MappingSaveRequest

	err := httputil.BindData(c, &request)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingSaveResponse{
			Error: &s,
		})
		return
	}

	key := pattern.Normalize(request.Pattern)
	if key == "" {
		s := models.ErrMappingPatternEmpty.Error()
		c.JSON(http.StatusBadRequest, MappingSaveResponse{
			Error: &s,
		})
		return
	}

	if request.TransactionType == "" {
		request.TransactionType = models.TypeExpense
	}

	if request.MatchType == "" {
		request.MatchType = models.MatchMerchant
	}

	// The denormalized name always comes from the category itself, not
	// from the caller
	var category models.Category
	err = models.DB.First(&category, "id = ? AND user_id = ?", request.CategoryID, request.UserID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingSaveResponse{
			Error: &s,
		})
		return
	}

	mapping, err := models.UpsertMapping(models.DB, models.UpsertMappingParams{
		UserID:          request.UserID,
		Pattern:         key,
		TransactionType: request.TransactionType,
		CategoryID:      category.ID,
		CategoryName:    category.Name,
		MatchType:       request.MatchType,
		Confidence:      request.Confidence,
	})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), MappingSaveResponse{
			Error: &s,
		})
		return
	}

	data := newMapping(c, *mapping)
	c.JSON(http.StatusCreated, MappingSaveResponse{
		Success: true,
		Data:    &data,
	})
}

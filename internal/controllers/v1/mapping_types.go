package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/money-magnet/backend/internal/models"
)

// MappingEditable represents all user configurable parameters
type MappingEditable struct {
	Pattern         string                 `json:"pattern" example:"STARBUCKS 552"`                                 // Normalized pattern the mapping matches on
	TransactionType models.TransactionType `json:"transactionType" example:"expense" enums:"income,expense"`        // Direction of the transactions the mapping applies to
	CategoryID      uuid.UUID              `json:"categoryId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"`       // ID of the category the pattern maps to
	MatchType       models.MatchType       `json:"matchType" example:"merchant" enums:"merchant,description"`       // Which transaction field the pattern was derived from
	Confidence      float64                `json:"confidence" example:"1" minimum:"0" maximum:"1" default:"1"`      // Confidence of the mapping
}

type MappingLinks struct {
	Self     string `json:"self" example:"https://example.com/api/v1/mappings/95685c82-53c6-455d-b235-f49960b73b21"`           // The mapping itself
	Category string `json:"category" example:"https://example.com/api/v1/categories/3b1ea324-d438-4419-882a-2fc91d71772f"` // The category the mapping points to
}

// Mapping is the representation of a CategoryMapping in API v1.
type Mapping struct {
	models.DefaultModel
	MappingEditable
	Links MappingLinks `json:"links"`

	// These fields are maintained by the categorization pipeline
	CategoryName string     `json:"categoryName" example:"Dining"`              // Cached name of the category
	UsageCount   uint       `json:"usageCount" example:"17"`                    // How often the mapping has been applied
	LastUsedAt   *time.Time `json:"lastUsedAt" example:"2024-02-07T18:43:00Z"` // When the mapping was last applied
}

func newMapping(c *gin.Context, model models.CategoryMapping) Mapping {
	url := c.GetString(string(models.ContextURL))

	return Mapping{
		DefaultModel: model.DefaultModel,
		MappingEditable: MappingEditable{
			Pattern:         model.Pattern,
			TransactionType: model.TransactionType,
			CategoryID:      model.CategoryID,
			MatchType:       model.MatchType,
			Confidence:      model.Confidence,
		},
		CategoryName: model.CategoryName,
		UsageCount:   model.UsageCount,
		LastUsedAt:   model.LastUsedAt,
		Links: MappingLinks{
			Self:     fmt.Sprintf("%s/v1/mappings/%s", url, model.ID),
			Category: fmt.Sprintf("%s/v1/categories/%s", url, model.CategoryID),
		},
	}
}

type MappingListResponse struct {
	Data       []Mapping   `json:"data"`                                                          // List of mappings
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type MappingCreateResponse struct {
	Data  []MappingResponse `json:"data"`                                                          // List of the created Mappings or their respective error
	Error *string           `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (r *MappingCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	r.Data = append(r.Data, MappingResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type MappingResponse struct {
	Data  *Mapping `json:"data"`                                                          // Data for the Mapping
	Error *string  `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type MappingQueryFilter struct {
	Pattern         string                 `form:"pattern" filterField:"false"` // Glob expression to filter patterns, e.g. "STARBUCKS*"
	TransactionType models.TransactionType `form:"type"`                        // By transaction type
	MatchType       models.MatchType       `form:"matchType"`                   // By match type
	Offset          uint                   `form:"offset" filterField:"false"`  // The offset of the first Mapping returned. Defaults to 0.
	Limit           int                    `form:"limit" filterField:"false"`   // Maximum number of Mappings to return. Defaults to 50.
}

func (f MappingQueryFilter) model() models.CategoryMapping {
	return models.CategoryMapping{
		TransactionType: f.TransactionType,
		MatchType:       f.MatchType,
	}
}

// MappingCheckRequest is the request of the workflow automation service
// that asks whether a learned mapping exists for a pattern.
type MappingCheckRequest struct {
	UserID          string                 `json:"user_id" example:"bank-sync-7f3a" binding:"required"` // ID of the user the lookup is for
	Pattern         string                 `json:"pattern" example:"Starbucks #552" binding:"required"` // Raw or normalized pattern to look up
	TransactionType models.TransactionType `json:"transaction_type" example:"expense"`                  // Direction of the transaction. Defaults to expense.
}

// MappingCheckResponse mirrors the webhook contract of the workflow
// automation service.
type MappingCheckResponse struct {
	MappingFound bool       `json:"mapping_found" example:"true"`                                   // Was a mapping found?
	CategoryID   *uuid.UUID `json:"category_id" example:"3b1ea324-d438-4419-882a-2fc91d71772f"`     // ID of the mapped category
	CategoryName string     `json:"category_name,omitempty" example:"Dining"`                       // Name of the mapped category
	Confidence   float64    `json:"confidence,omitempty" example:"1"`                               // Confidence of the mapping
	Error        *string    `json:"error,omitempty" example:"the user_id field must be set"`        // The error, if any occurred
}

// MappingSaveRequest is the request of the workflow automation service
// that persists a categorization decision as a mapping. The category name
// cached on the mapping is resolved from the category, not taken from the
// caller.
type MappingSaveRequest struct {
	UserID          string                 `json:"user_id" example:"bank-sync-7f3a" binding:"required"`                          // ID of the user the mapping belongs to
	Pattern         string                 `json:"pattern" example:"Starbucks #552" binding:"required"`                          // Raw or normalized pattern
	TransactionType models.TransactionType `json:"transaction_type" example:"expense"`                                           // Direction of the transactions. Defaults to expense.
	CategoryID      uuid.UUID              `json:"category_id" example:"3b1ea324-d438-4419-882a-2fc91d71772f" binding:"required"` // ID of the category
	MatchType       models.MatchType       `json:"match_type" example:"merchant"`                                                // Which field the pattern was derived from. Defaults to merchant.
	Confidence      float64                `json:"confidence" example:"1"`                                                       // Confidence of the mapping. Defaults to 1.
}

type MappingSaveResponse struct {
	Success bool     `json:"success" example:"true"`                                        // Was the mapping saved?
	Data    *Mapping `json:"data"`                                                          // The saved mapping
	Error   *string  `json:"error,omitempty" example:"the user_id field must be set"`       // The error, if any occurred
}

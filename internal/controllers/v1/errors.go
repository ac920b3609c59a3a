package v1

import (
	"errors"
	"net/http"

	"github.com/money-magnet/backend/internal/models"
)

type httpError struct {
	Error string `json:"error" example:"An ID specified in the query string was not a valid UUID"`
}

// status returns the appropriate status for a database error
func status(err error) int {
	if errors.Is(err, models.ErrGeneral) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) {
		return http.StatusNotFound
	}

	return http.StatusBadRequest
}

var (
	errCategoryIDParameter = errors.New("the categoryId parameter must be set")
	errMerchantNotSet      = errors.New("the merchant parameter must be set")
	errTargetDateNotSet    = errors.New("the targetDate query parameter must be set")
	errTargetDateInPast    = errors.New("the targetDate must be in the future")
)

package httputil

import "errors"

// Errors returned for malformed requests. Their texts are sent to API
// clients verbatim.
var (
	ErrInvalidBody      = errors.New("the request body could not be parsed, check the payload for malformed JSON or wrong field types")
	ErrRequestBodyEmpty = errors.New("the request body must not be empty")
	ErrInvalidUUID      = errors.New("the specified resource ID is not a valid UUID")
)

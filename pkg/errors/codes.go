package errors

import "net/http"

// Code is the stable, client-visible error identifier.
type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeStateConflict  Code = "STATE_CONFLICT"
	CodeIdempotency    Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit      Code = "RATE_LIMIT_EXCEEDED"
	CodePayment        Code = "PAYMENT_ERROR"
	CodePartialFailure Code = "PARTIAL_FAILURE"
	CodeInternal       Code = "INTERNAL_ERROR"
	CodeDependency     Code = "DEPENDENCY_ERROR"
)

// Metadata drives how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	retryable   = true
	withDetails = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:     {http.StatusBadRequest, false, "validation failed", withDetails},
	CodeUnauthorized:   {http.StatusUnauthorized, false, "authentication required", false},
	CodeForbidden:      {http.StatusForbidden, false, "access denied", false},
	CodeNotFound:       {http.StatusNotFound, false, "resource not found", false},
	CodeConflict:       {http.StatusConflict, false, "conflict detected", false},
	CodeStateConflict:  {http.StatusUnprocessableEntity, false, "state transition disallowed", withDetails},
	CodeIdempotency:    {http.StatusConflict, false, "idempotency key reused", withDetails},
	CodeRateLimit:      {http.StatusTooManyRequests, false, "rate limit exceeded", false},
	CodePayment:        {http.StatusPaymentRequired, retryable, "payment failed", withDetails},
	CodePartialFailure: {http.StatusInternalServerError, false, "order saved but a follow-up step failed", withDetails},
	CodeInternal:       {http.StatusInternalServerError, retryable, "something went wrong", false},
	CodeDependency:     {http.StatusBadGateway, retryable, "dependency unavailable", withDetails},
}

// MetadataFor returns the rendering rules for code. Unknown codes render as
// internal errors.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

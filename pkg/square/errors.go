package square

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

var codeByStatus = map[int]pkgerrors.Code{
	http.StatusBadRequest:          pkgerrors.CodeValidation,
	http.StatusUnauthorized:        pkgerrors.CodeUnauthorized,
	http.StatusPaymentRequired:     pkgerrors.CodePayment,
	http.StatusForbidden:           pkgerrors.CodeForbidden,
	http.StatusNotFound:            pkgerrors.CodeNotFound,
	http.StatusConflict:            pkgerrors.CodeConflict,
	http.StatusUnprocessableEntity: pkgerrors.CodeStateConflict,
	http.StatusTooManyRequests:     pkgerrors.CodeRateLimit,
}

// codeForStatus maps an HTTP status from Square onto an error code. Unlisted
// 4xx statuses count as validation and 5xx as a dependency failure.
func codeForStatus(status int) pkgerrors.Code {
	if code, ok := codeByStatus[status]; ok {
		return code
	}
	if status >= 400 && status < 500 {
		return pkgerrors.CodeValidation
	}
	return pkgerrors.CodeDependency
}

// mapError turns an SDK failure into a typed error. The first Square error
// that names a more specific cause wins over the HTTP status. Card declines
// keep Square's detail text as the client message.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	message := "square " + op + " failed"
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
	}

	code := codeForStatus(apiErr.StatusCode)
	for _, sqErr := range squareErrors(apiErr) {
		switch {
		case sqErr == nil:
			continue
		case sqErr.Code == sq.ErrorCodeIdempotencyKeyReused:
			code = pkgerrors.CodeIdempotency
		case sqErr.Category == sq.ErrorCategoryAuthenticationError:
			code = pkgerrors.CodeUnauthorized
		case sqErr.Category == sq.ErrorCategoryPaymentMethodError:
			code = pkgerrors.CodePayment
			if detail := deref(sqErr.GetDetail()); detail != "" {
				message = detail
			}
		default:
			continue
		}
		break
	}
	return pkgerrors.Wrap(code, err, message)
}

// squareErrors decodes the errors array Square puts in its response body.
func squareErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil || apiErr.Unwrap() == nil {
		return nil
	}
	raw := strings.TrimSpace(apiErr.Unwrap().Error())
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if raw == "" || json.Unmarshal([]byte(raw), &body) != nil {
		return nil
	}
	return body.Errors
}

package writer

import (
	"errors"
	"net/http"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var retryableHTTP = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

var retryableGRPC = map[codes.Code]bool{
	codes.Aborted:           true,
	codes.DeadlineExceeded:  true,
	codes.Internal:          true,
	codes.ResourceExhausted: true,
	codes.Unavailable:       true,
}

// retryable reports whether err is transient. A streaming insert error made
// of several row errors is retried only when every one of them is transient.
func retryable(err error) bool {
	causes := leafErrors(err)
	if len(causes) == 0 {
		return false
	}
	for _, cause := range causes {
		if !transient(cause) {
			return false
		}
	}
	return true
}

func leafErrors(err error) []error {
	if err == nil {
		return nil
	}

	var rowErrs cbigquery.PutMultiError
	if errors.As(err, &rowErrs) {
		var out []error
		for _, rowErr := range rowErrs {
			for _, inner := range rowErr.Errors {
				out = append(out, leafErrors(inner)...)
			}
		}
		return out
	}

	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		var out []error
		for _, inner := range multi {
			out = append(out, leafErrors(inner)...)
		}
		return out
	}
	return []error{err}
}

func transient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableHTTP[apiErr.Code]
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return retryableGRPC[st.Code()]
	}
	return false
}

package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

// ParseQueryInt reads an integer query parameter. A missing value yields def;
// a value outside [lo, hi] is a validation error.
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, pkgerrors.Validation(pkgerrors.FieldErrors{key: key + " must be a whole number"})
	case n < lo || n > hi:
		return 0, pkgerrors.Validation(pkgerrors.FieldErrors{
			key: key + " must be between " + strconv.Itoa(lo) + " and " + strconv.Itoa(hi),
		})
	}
	return n, nil
}

// Package metrics holds the Prometheus collectors shared by the binaries.
// Every constructor tolerates a nil Registerer and returns a no-op recorder.
package metrics

const namespace = "farmersbracket"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePending = "pending"
	OutcomeInvalid = "invalid"
)

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

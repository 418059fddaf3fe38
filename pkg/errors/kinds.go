package errors

// Kind groups codes into the four failure classes callers branch on.
type Kind string

const (
	KindNone           Kind = ""
	KindValidation     Kind = "validation"
	KindBackend        Kind = "backend"
	KindPayment        Kind = "payment"
	KindPartialFailure Kind = "partial_failure"
)

// KindOf classifies err. Untyped errors count as backend failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	typed := As(err)
	if typed == nil {
		return KindBackend
	}
	switch typed.code {
	case CodeValidation:
		return KindValidation
	case CodePayment:
		return KindPayment
	case CodePartialFailure:
		return KindPartialFailure
	default:
		return KindBackend
	}
}

// FieldErrors maps a request field to a human-readable message.
type FieldErrors map[string]string

// Validation builds a validation error that carries per-field messages.
func Validation(fields FieldErrors) *Error {
	msg := "validation failed"
	if len(fields) == 1 {
		for _, v := range fields {
			msg = v
		}
	}
	return New(CodeValidation, msg).WithDetails(fields)
}

// PaymentDetails is attached to payment errors so clients can retry the right order.
type PaymentDetails struct {
	OrderID string `json:"order_id,omitempty"`
	Gateway string `json:"gateway,omitempty"`
}

// Payment wraps a processor failure. The processor message is surfaced verbatim.
func Payment(cause error, processorMessage string, details PaymentDetails) *Error {
	if processorMessage == "" {
		processorMessage = MetadataFor(CodePayment).PublicMessage
	}
	return Wrap(CodePayment, cause, processorMessage).WithDetails(details)
}

// PartialFailureDetails names the step that failed after an order was committed.
type PartialFailureDetails struct {
	OrderID string `json:"order_id"`
	Step    string `json:"step"`
}

// PartialFailure reports that the order exists but a follow-up step did not complete.
func PartialFailure(cause error, orderID, step string) *Error {
	return Wrap(CodePartialFailure, cause, "order saved but "+step+" failed").
		WithDetails(PartialFailureDetails{OrderID: orderID, Step: step})
}

package enums

// PaymentStatus is orders.payment_status.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

var paymentStatuses = members[PaymentStatus]{PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return paymentStatuses.has(p) }

// Settled reports whether the payment reached a final state.
func (p PaymentStatus) Settled() bool { return p != PaymentStatusPending && p.IsValid() }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return paymentStatuses.parse("payment status", value, lowerTrim)
}

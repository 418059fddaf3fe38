package enums

// PaymentMethod describes how a customer settles an order.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodWallet       PaymentMethod = "wallet"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodPayFast      PaymentMethod = "payfast"
)

var paymentMethods = members[PaymentMethod]{
	PaymentMethodCard,
	PaymentMethodWallet,
	PaymentMethodBankTransfer,
	PaymentMethodCash,
	PaymentMethodPayFast,
}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return paymentMethods.has(p) }

// RequiresGateway reports whether an external processor confirms the payment.
func (p PaymentMethod) RequiresGateway() bool {
	return p == PaymentMethodCard || p == PaymentMethodPayFast
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return paymentMethods.parse("payment method", value, lowerTrim)
}

package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

var saPhonePattern = regexp.MustCompile(`^(\+27|0)[6-8][0-9]{8}$`)

var fieldMessages = map[string]string{
	"full_name":        "full name is required",
	"phone":            "enter a valid South African phone number",
	"shipping_address": "address must be at least 10 characters",
	"payment_method":   "choose a payment method",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("sa_phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	return v
}

// NormalizePhone strips the spaces customers type between digit groups.
func NormalizePhone(raw string) string {
	return strings.Join(strings.Fields(raw), "")
}

// ValidPhone reports whether raw is a South African mobile number.
func ValidPhone(raw string) bool {
	return saPhonePattern.MatchString(NormalizePhone(raw))
}

// customerDetails is the part of a submission checked before anything is written.
type customerDetails struct {
	FullName        string `json:"full_name" validate:"required"`
	Phone           string `json:"phone" validate:"required,sa_phone"`
	ShippingAddress string `json:"shipping_address" validate:"required,min=10"`
	PaymentMethod   string `json:"payment_method" validate:"required,oneof=card wallet bank_transfer cash payfast"`
}

func validateDetails(input SubmitInput) pkgerrors.FieldErrors {
	details := customerDetails{
		FullName:        strings.TrimSpace(input.FullName),
		Phone:           NormalizePhone(input.Phone),
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		PaymentMethod:   strings.ToLower(strings.TrimSpace(input.PaymentMethod)),
	}

	fields := pkgerrors.FieldErrors{}
	err := validate.Struct(details)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessages[fe.Field()]
		}
	}
	return fields
}

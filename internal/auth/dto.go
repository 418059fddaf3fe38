package auth

import (
	"github.com/farmersbracket/farmersbracket-backend/internal/users"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the sign-up form. Role defaults to customer.
type RegisterRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=8,max=128"`
	FullName string     `json:"full_name" validate:"required,max=120"`
	Phone    *string    `json:"phone,omitempty"`
	Role     enums.Role `json:"role,omitempty" validate:"omitempty,oneof=customer farmer"`
}

// RefreshRequest carries the refresh token; the expired access token travels
// in the Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// EmailRequest is used by password reset and confirmation resend.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// ConfirmEmailRequest redeems a confirmation link.
type ConfirmEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResponse contains the tokens and the signed-in user.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}

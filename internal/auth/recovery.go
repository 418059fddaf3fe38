package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/payloads"
	"github.com/farmersbracket/farmersbracket-backend/pkg/security"
)

// RequestPasswordReset stores a single-use token and queues the reset email.
// Unknown addresses succeed without side effects.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil
		}
		return err
	}

	token, err := security.NewOpaqueToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	ttl := s.passwordCfg.ResetTokenTTL
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	key := s.tokens.PasswordResetKey(security.DigestToken(token))
	if err := s.tokens.Set(ctx, key, user.ID.String(), ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}

	expiresAt := s.now().UTC().Add(ttl)
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetRequested,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data: payloads.PasswordResetRequestedEvent{
				UserID:    user.ID,
				Email:     user.Email,
				ResetURL:  s.publicURL + "/reset-password?token=" + token,
				ExpiresAt: expiresAt,
			},
		})
	})
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if len(req.Password) < security.MinPasswordLength {
		return pkgerrors.Validation(pkgerrors.FieldErrors{"password": "must be at least 8 characters"})
	}
	key := s.tokens.PasswordResetKey(security.DigestToken(strings.TrimSpace(req.Token)))
	userID, err := s.redeem(ctx, key, "reset link is invalid or expired")
	if err != nil {
		return err
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, s.now().UTC()); err != nil {
		return err
	}
	if err := s.tokens.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reset token")
	}
	return nil
}

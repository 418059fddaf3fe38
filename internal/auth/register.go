package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/internal/users"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/payloads"
	"github.com/farmersbracket/farmersbracket-backend/pkg/redis"
	"github.com/farmersbracket/farmersbracket-backend/pkg/security"
)

const (
	confirmationTTL = 48 * time.Hour
	defaultResetTTL = time.Hour
)

func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	fields := pkgerrors.FieldErrors{}
	if email == "" {
		fields["email"] = "is required"
	}
	if strings.TrimSpace(req.FullName) == "" {
		fields["full_name"] = "is required"
	}
	if len(req.Password) < security.MinPasswordLength {
		fields["password"] = "must be at least 8 characters"
	}
	role := req.Role
	if role == "" {
		role = enums.RoleCustomer
	}
	if role != enums.RoleCustomer && role != enums.RoleFarmer {
		fields["role"] = "must be customer or farmer"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation(fields)
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	token, err := security.NewOpaqueToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate confirmation token")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := users.NewRepository(tx).Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FullName:     req.FullName,
			Phone:        req.Phone,
			Role:         role,
		})
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeConflict) {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return err
		}
		created = user
		return s.emitConfirmation(ctx, tx, user, token)
	})
	if err != nil {
		return nil, err
	}

	if err := s.storeConfirmation(ctx, created.ID, token); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "user_id", created.ID.String()), "store confirmation token", err)
	}
	return users.FromModel(created), nil
}

// ResendConfirmation is silent for unknown or already confirmed addresses so
// the endpoint cannot be used to probe accounts.
func (s *service) ResendConfirmation(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil
		}
		return err
	}
	if user.EmailConfirmedAt != nil {
		return nil
	}

	token, err := security.NewOpaqueToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate confirmation token")
	}
	if err := s.storeConfirmation(ctx, user.ID, token); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.emitConfirmation(ctx, tx, user, token)
	})
}

func (s *service) ConfirmEmail(ctx context.Context, token string) error {
	key := s.tokens.ConfirmationKey(security.DigestToken(strings.TrimSpace(token)))
	userID, err := s.redeem(ctx, key, "confirmation link is invalid or expired")
	if err != nil {
		return err
	}
	if err := s.users.MarkEmailConfirmed(ctx, userID, s.now().UTC()); err != nil {
		return err
	}
	if err := s.tokens.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume confirmation token")
	}
	return nil
}

func (s *service) emitConfirmation(ctx context.Context, tx *gorm.DB, user *models.User, token string) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEmailConfirmationRequested,
		AggregateType: enums.AggregateUser,
		AggregateID:   user.ID,
		Actor:         &outbox.ActorRef{UserID: user.ID, Role: user.Role},
		Data: payloads.ConfirmationRequestedEvent{
			UserID:     user.ID,
			Email:      user.Email,
			ConfirmURL: s.publicURL + "/confirm-email?token=" + token,
		},
	})
}

func (s *service) storeConfirmation(ctx context.Context, userID uuid.UUID, token string) error {
	key := s.tokens.ConfirmationKey(security.DigestToken(token))
	if err := s.tokens.Set(ctx, key, userID.String(), confirmationTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store confirmation token")
	}
	return nil
}

// redeem resolves a single-use token key to the user it was issued for.
func (s *service) redeem(ctx context.Context, key, invalidMessage string) (uuid.UUID, error) {
	raw, err := s.tokens.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, invalidMessage)
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup token")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, invalidMessage)
	}
	return userID, nil
}

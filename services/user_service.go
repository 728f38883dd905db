package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	sessiongate "go.pilab.hu/sessiongate"
	"go.pilab.hu/sessiongate/domain"
	"go.pilab.hu/sessiongate/internal/metrics"
)

// UserService verifies user credentials against the user repository.
type UserService struct {
	repo   domain.UserRepository
	hasher PasswordHasher
}

// NewUserService creates a new UserService.
func NewUserService(repo domain.UserRepository, hasher PasswordHasher) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
	}
}

// VerifyCredentials returns the verified user identity for a correct
// username/password pair. Unknown user and wrong password collapse into the
// same sessiongate.ErrInvalidCredentials so callers cannot distinguish them.
func (s *UserService) VerifyCredentials(ctx context.Context, userName, password string) (*domain.User, error) {
	user, err := s.repo.GetUserByName(ctx, userName)
	if err != nil {
		if !errors.Is(err, sessiongate.ErrUserNotFound) {
			log.Ctx(ctx).Error().Err(err).Str("user_name", userName).Msg("user lookup failed")
		}
		metrics.LoginFailureTotal.Inc()
		return nil, sessiongate.ErrInvalidCredentials
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		log.Ctx(ctx).Warn().Int64("user_id", user.ID).Msg("incorrect password")
		metrics.LoginFailureTotal.Inc()
		return nil, sessiongate.ErrInvalidCredentials
	}

	metrics.LoginSuccessTotal.Inc()
	return user, nil
}

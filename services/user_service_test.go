package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessiongate "go.pilab.hu/sessiongate"
	"go.pilab.hu/sessiongate/domain"
	"go.pilab.hu/sessiongate/internal/auth"
	"go.pilab.hu/sessiongate/services"
)

func newUserService(t *testing.T) (*services.UserService, *fakeUserRepo) {
	t.Helper()

	hasher := auth.NewBcryptPasswordHasher(4)
	passwordHash, err := hasher.Hash("123456")
	require.NoError(t, err)

	repo := &fakeUserRepo{users: map[int64]*domain.User{
		1: {ID: 1, UserName: "admin", Mobile: "13888888888", PasswordHash: passwordHash},
	}}
	return services.NewUserService(repo, hasher), repo
}

func TestVerifyCredentials(t *testing.T) {
	svc, _ := newUserService(t)

	user, err := svc.VerifyCredentials(context.Background(), "admin", "123456")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "admin", user.UserName)
}

func TestVerifyCredentialsWrongPassword(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.VerifyCredentials(context.Background(), "admin", "654321")
	assert.ErrorIs(t, err, sessiongate.ErrInvalidCredentials)
}

func TestVerifyCredentialsUnknownUser(t *testing.T) {
	svc, _ := newUserService(t)

	// unknown user and wrong password are indistinguishable to the caller
	_, err := svc.VerifyCredentials(context.Background(), "nobody", "123456")
	assert.ErrorIs(t, err, sessiongate.ErrInvalidCredentials)
}

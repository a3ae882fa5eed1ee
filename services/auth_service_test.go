package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designloop/sprint-system/models"
)

func TestRegisterAndLogin(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		FirstName: "Alice",
		LastName:  "Keller",
		Email:     "  Alice@Example.com ",
		Password:  "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email, "email is normalized")
	assert.Equal(t, models.RoleMember, user.Role)
	assert.Empty(t, user.PasswordHash, "hash never leaves the service")

	loggedIn, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "hunter2hunter2"})
	require.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "short"})
	require.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	input := RegisterInput{FirstName: "Alice", Email: "a@b.com", Password: "hunter2hunter2"}
	_, err := svc.Register(ctx, input)
	require.NoError(t, err)

	_, err = svc.Register(ctx, input)
	require.ErrorIs(t, err, ErrUserEmailConflict)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "hunter2hunter2"})
	require.NoError(t, err)

	// Wrong password and unknown email fail identically.
	_, err = svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "wrongwrong"})
	require.ErrorIs(t, err, ErrAuthInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@b.com", Password: "hunter2hunter2"})
	require.ErrorIs(t, err, ErrAuthInvalidCredentials)
}

package usecase_test

import (
	"context"
	"testing"
	"time"

	"catalog/internal/domain/model"
	"catalog/internal/infra/memory"
	"catalog/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func registerUser(t *testing.T, s *memory.Store, email, password string) usecase.UserView {
	t.Helper()
	v, err := newUserUsecase(s).Create(context.Background(), usecase.CreateUserInput{
		Email: email, Password: password, ConfirmPassword: password,
	})
	require.NoError(t, err)
	return v
}

func TestAuthUsecase_Login(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	user := registerUser(t, s, "alice@example.com", "secret123")
	uc := usecase.NewAuthUsecase(s.Users(), testSecret, 15*time.Minute, nil)

	out, err := uc.Login(ctx, "Alice@Example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, out.User.ID)
	assert.Equal(t, 900, out.Token.ExpiresIn)

	token, err := jwt.Parse(out.Token.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(user.ID), claims["sub"])
	assert.Equal(t, "user", claims["role"])
	assert.Equal(t, float64(0), claims["tv"])
}

func TestAuthUsecase_LoginFailures(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	registerUser(t, s, "alice@example.com", "secret123")
	uc := usecase.NewAuthUsecase(s.Users(), testSecret, time.Minute, nil)

	_, err := uc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)

	_, err = uc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)

	_, err = uc.Login(ctx, "", "")
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestAuthUsecase_MeAndForceLogout(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	user := registerUser(t, s, "alice@example.com", "secret123")
	uc := usecase.NewAuthUsecase(s.Users(), testSecret, time.Minute, nil)

	me, err := uc.Me(ctx, model.Principal{UserID: user.ID, Role: model.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)

	out, err := uc.ForceLogout(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.NewTokenVersion)

	_, err = uc.ForceLogout(ctx, 999)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

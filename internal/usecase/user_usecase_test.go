package usecase_test

import (
	"context"
	"testing"

	"catalog/internal/domain/model"
	"catalog/internal/infra/memory"
	"catalog/internal/policy"
	repo "catalog/internal/repository"
	"catalog/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserUsecase(s *memory.Store) *usecase.UserUsecase {
	return usecase.NewUserUsecase(s.Users(), memory.NewTxManager(s), bcrypt.MinCost, nil)
}

func TestUserUsecase_Create(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	uc := newUserUsecase(s)

	v, err := uc.Create(ctx, usecase.CreateUserInput{
		Email: "alice@example.com", Password: "secret123", ConfirmPassword: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", v.Name)
	assert.Equal(t, string(model.RoleUser), v.Role)

	stored, err := s.Users().FindByID(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))

	_, err = uc.Create(ctx, usecase.CreateUserInput{
		Email: "ALICE@example.com", Password: "x", ConfirmPassword: "x",
	})
	assert.ErrorIs(t, err, usecase.ErrConflict)

	_, err = uc.Create(ctx, usecase.CreateUserInput{
		Email: "bob@example.com", Password: "a", ConfirmPassword: "b",
	})
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestUserUsecase_ListAndFind(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	uc := newUserUsecase(s)
	seedUser(t, s, "alice@example.com", model.RoleUser)
	bob := seedUser(t, s, "bob@shop.example", model.RoleSeller)

	list, err := uc.List(ctx, "SHOP")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bob.UserID, list[0].ID)

	got, err := uc.FindByID(ctx, bob.UserID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "seller", got.Role)

	got, err = uc.FindByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserUsecase_UpdateRoleBumpsTokenVersion(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	uc := newUserUsecase(s)
	admin := seedUser(t, s, "admin@example.com", model.RoleAdmin)
	target := seedUser(t, s, "alice@example.com", model.RoleUser)

	v, err := uc.Update(ctx, admin, target.UserID, usecase.UpdateUserInput{Role: model.Set(model.RoleSeller)})
	require.NoError(t, err)
	assert.Equal(t, "seller", v.Role)

	stored, err := s.Users().FindByID(ctx, target.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TokenVersion)

	//名前だけならトークンはそのまま
	_, err = uc.Update(ctx, admin, target.UserID, usecase.UpdateUserInput{Name: model.Set("Alice")})
	require.NoError(t, err)
	stored, _ = s.Users().FindByID(ctx, target.UserID)
	assert.Equal(t, 1, stored.TokenVersion)
	assert.Equal(t, "Alice", stored.Name)

	_, err = uc.Update(ctx, admin, target.UserID, usecase.UpdateUserInput{Role: model.Set(model.Role("root"))})
	assert.ErrorIs(t, err, usecase.ErrValidation)

	_, err = uc.Update(ctx, admin, target.UserID, usecase.UpdateUserInput{Email: model.Set("ADMIN@example.com")})
	assert.ErrorIs(t, err, usecase.ErrConflict)

	_, err = uc.Update(ctx, admin, 999, usecase.UpdateUserInput{Name: model.Set("x")})
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	logs, err := s.AuditLogs().List(ctx, repo.AuditLogFilter{ResourceID: ptr(target.UserID)})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditActionUpdateUser, logs[0].Action)
	assert.NotContains(t, logs[0].AfterJSON, "password")
}

func TestUserUsecase_DeleteCascadesProducts(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	uc := newUserUsecase(s)
	products := usecase.NewProductUsecase(s.Products(), memory.NewTxManager(s), nil, nil)
	admin := seedUser(t, s, "admin@example.com", model.RoleAdmin)
	seller := seedUser(t, s, "seller@example.com", model.RoleSeller)

	_, err := products.Create(ctx, seller, usecase.CreateProductInput{Name: "A", SKU: "A-1", OwnerID: seller.UserID})
	require.NoError(t, err)

	require.NoError(t, uc.Delete(ctx, admin, seller.UserID))

	got, err := uc.FindByID(ctx, seller.UserID)
	require.NoError(t, err)
	assert.Nil(t, got)

	scoped, _ := policy.ScopeProductQuery(admin, policy.ScopeCatalog, policy.ProductQuery{})
	list, err := products.FindAll(ctx, scoped)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, uc.Delete(ctx, admin, seller.UserID), usecase.ErrNotFound)
}

package usecase_test

import (
	"errors"
	"net/http"
	"testing"

	"catalog/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesKind(t *testing.T) {
	err := usecase.NewError(usecase.KindConflict, "sku already exists")

	assert.ErrorIs(t, err, usecase.ErrConflict)
	assert.NotErrorIs(t, err, usecase.ErrNotFound)

	ae, ok := usecase.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, ae.Status())
	assert.Equal(t, "sku already exists", ae.Message)
}

func TestAppError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := usecase.WrapError(usecase.KindUpstream, "image upload failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, usecase.ErrUpstream)

	ae, _ := usecase.AsAppError(err)
	assert.Equal(t, http.StatusBadGateway, ae.Status())
	assert.Contains(t, err.Error(), "connection refused")
}

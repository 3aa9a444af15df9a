package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signup struct {
	Email    string   `validate:"required,email"`
	Password string   `validate:"required,min=8"`
	Confirm  string   `validate:"eqfield=Password"`
	Role     string   `validate:"omitempty,oneof=admin seller user"`
	Price    *float64 `validate:"omitempty,gte=0"`
}

func TestRequestValidator(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(signup{Email: "a@example.com", Password: "12345678", Confirm: "12345678"}))

	err := v.Validate(signup{Email: "nope", Password: "12345678", Confirm: "12345678"})
	assert.EqualError(t, err, "email must be a valid email")

	err = v.Validate(signup{Email: "a@example.com", Password: "short", Confirm: "other"})
	assert.EqualError(t, err, "password must be at least 8, confirm must match password")

	err = v.Validate(signup{Email: "a@example.com", Password: "12345678", Confirm: "12345678", Role: "root"})
	assert.EqualError(t, err, "role must be one of [admin seller user]")

	neg := -1.0
	err = v.Validate(signup{Email: "a@example.com", Password: "12345678", Confirm: "12345678", Price: &neg})
	assert.EqualError(t, err, "price must be at least 0")
}

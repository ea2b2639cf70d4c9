package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Status   string `json:"status" validate:"omitempty,oneof=ACTIVE SUSPENDED"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(&signup{Email: "a@example.com", Password: "longenough"}))

	err := Struct(&signup{Email: "nope", Password: "short"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "email must be a valid email")
		assert.Contains(t, err.Error(), "password must be at least 8 characters")
	}

	err = Struct(&signup{Email: "a@example.com", Password: "longenough", Status: "GONE"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "status must be one of [ACTIVE SUSPENDED]")
	}
}

// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrongPasswordValidation(t *testing.T) {
	type probe struct {
		Password string `validate:"strong_password"`
	}

	valid := []string{"TestPass123!", "Str0ng#Pass", "Abcdef1$"}
	for _, p := range valid {
		assert.NoError(t, ValidateStruct(&probe{Password: p}), p)
	}

	invalid := []string{"short1!", "alllowercase1!", "ALLUPPERCASE1!", "NoNumbers!", "NoSpecial123"}
	for _, p := range invalid {
		assert.Error(t, ValidateStruct(&probe{Password: p}), p)
	}
}

func TestUsernameValidation(t *testing.T) {
	type probe struct {
		Username string `validate:"username"`
	}

	assert.NoError(t, ValidateStruct(&probe{Username: "seller_42"}))
	assert.Error(t, ValidateStruct(&probe{Username: "ab"}))
	assert.Error(t, ValidateStruct(&probe{Username: "has spaces"}))
	assert.Error(t, ValidateStruct(&probe{Username: "dots.not.allowed"}))
}

func TestCountryAndCurrencyCodes(t *testing.T) {
	assert.True(t, IsValidCountryCode("DE"))
	assert.True(t, IsValidCountryCode("AT"))
	assert.False(t, IsValidCountryCode("de"))
	assert.False(t, IsValidCountryCode("DEU"))
	assert.False(t, IsValidCountryCode(""))

	assert.True(t, IsValidCurrencyCode("EUR"))
	assert.True(t, IsValidCurrencyCode("USD"))
	assert.False(t, IsValidCurrencyCode("eur"))
	assert.False(t, IsValidCurrencyCode("EU"))
	assert.False(t, IsValidCurrencyCode(""))
}

func TestGetValidationErrors(t *testing.T) {
	type probe struct {
		Email string `validate:"required,email"`
		Name  string `validate:"required,max=5"`
	}

	err := ValidateStruct(&probe{Email: "not-an-email", Name: "toolongname"})
	assert.Error(t, err)

	errs := GetValidationErrors(err)
	assert.Len(t, errs, 2)
	assert.Equal(t, "email", errs[0].Field)
	assert.Equal(t, "Invalid email format", errs[0].Message)
}

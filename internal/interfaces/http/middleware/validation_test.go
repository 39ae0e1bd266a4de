package middleware

import (
	"errors"
	"testing"

	"github.com/dairyops/backend/internal/application/validation"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type consumeRequest struct {
	Quantity  string `json:"quantity" binding:"required"`
	Reference string `json:"reference" binding:"max=5"`
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	assert.Same(t, validation.Engine(), binding.Validator.Engine())

	err := binding.Validator.ValidateStruct(&consumeRequest{Reference: "ORDER-1"})
	var fieldErrors validator.ValidationErrors
	require.True(t, errors.As(err, &fieldErrors))

	de, ok := shared.AsDomainError(validation.Translate(err))
	require.True(t, ok)
	assert.Equal(t, "This field is required", de.Details["quantity"])
	assert.Equal(t, "Must be at most 5 characters", de.Details["reference"])
}

func TestSetupValidator_IgnoresNonStructs(t *testing.T) {
	SetupValidator()

	var nilRequest *consumeRequest
	assert.NoError(t, binding.Validator.ValidateStruct(nilRequest))
	assert.NoError(t, binding.Validator.ValidateStruct([]string{"x"}))
	assert.NoError(t, binding.Validator.ValidateStruct(&consumeRequest{Quantity: "1"}))
}

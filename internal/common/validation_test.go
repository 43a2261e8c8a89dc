package common

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "tornillo hexagonal 10mm", NormalizeText("  Tornillo   Hexagonal\t10MM "))
	assert.Equal(t, "", NormalizeText("   "))
}

func TestRUT(t *testing.T) {
	assert.True(t, IsValidRUT("12.345.678-5"))
	assert.True(t, IsValidRUT("123456785"))
	assert.True(t, IsValidRUT("76.086.428-5"))
	assert.False(t, IsValidRUT("12.345.678-9"))
	assert.False(t, IsValidRUT("abc"))
	assert.False(t, IsValidRUT(""))
	assert.Equal(t, "12345678-5", NormalizeRUT("12.345.678-5"))
	assert.Equal(t, "K", RUTCheckDigit("10000013"))
	assert.True(t, IsValidRUT("10000013-k"))
}

func TestPlate(t *testing.T) {
	assert.True(t, IsValidPlate("ab-cd-12"))
	assert.True(t, IsValidPlate("AB1234"))
	assert.False(t, IsValidPlate("A12345"))
	assert.False(t, IsValidPlate("ABCDEF"))
	assert.Equal(t, "BCDF12", NormalizePlate(" bc-df 12 "))
}

func TestProductCode(t *testing.T) {
	assert.True(t, IsValidProductCode("HER-TAL-001"))
	assert.True(t, IsValidProductCode("abc_12"))
	assert.False(t, IsValidProductCode("abc 12"))
	assert.False(t, IsValidProductCode("código"))
}

func TestRegisterValidators(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterValidators(v))

	type payload struct {
		RUT   string `validate:"required,rut"`
		Code  string `validate:"required,productcode"`
		Plate string `validate:"required,plate"`
	}

	assert.NoError(t, v.Struct(payload{RUT: "12345678-5", Code: "ABC-1", Plate: "BBCL12"}))

	err := v.Struct(payload{RUT: "12345678-1", Code: "A B", Plate: "1"})
	require.Error(t, err)
	errs := FormatValidationErrors(err.(validator.ValidationErrors))
	assert.Len(t, errs, 3)
	assert.Contains(t, errs["RUT"], "valid RUT")
}

package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLines(t *testing.T) {
	text := `FACTURA ELECTRONICA F-1234
Ferreteria del Sur SpA
HER-MAR-001 Martillo de goma 10
Taladro   percutor 800W   2
SKU9 Llave inglesa 12,00
Tornillos autoperforantes 1.000
Cajas de clavos 2.500,00
Subtotal: 10.500
Total 12.500
AB 3
Guantes de nitrilo 0
`
	lines := ParseLines(text)

	if assert.Len(t, lines, 5) {
		assert.Equal(t, "Martillo de goma", lines[0].Name)
		assert.Equal(t, 10, lines[0].Quantity)
		if assert.NotNil(t, lines[0].Code) {
			assert.Equal(t, "HER-MAR-001", *lines[0].Code)
		}

		assert.Nil(t, lines[1].Code, "a first word without digits is part of the name")
		assert.Equal(t, "Taladro percutor 800W", lines[1].Name)
		assert.Equal(t, 2, lines[1].Quantity)
		assert.Equal(t, "Taladro percutor 800W 2", lines[1].Raw)

		assert.Equal(t, "SKU9", *lines[2].Code)
		assert.Equal(t, "Llave inglesa", lines[2].Name)
		assert.Equal(t, 12, lines[2].Quantity)

		assert.Equal(t, "Tornillos autoperforantes", lines[3].Name)
		assert.Equal(t, 1000, lines[3].Quantity, "a dot before three digits groups thousands")

		assert.Equal(t, "Cajas de clavos", lines[4].Name)
		assert.Equal(t, 2500, lines[4].Quantity)
	}
}

func TestParseLineQuantityFormats(t *testing.T) {
	cases := map[string]int{
		"Martillo 7":         7,
		"Martillo 7,0":       7,
		"Martillo 7.00":      7,
		"Martillo 12.000":    12000,
		"Martillo 1.250.000": 1250000,
	}
	for raw, want := range cases {
		line, ok := parseLine(raw)
		if assert.True(t, ok, raw) {
			assert.Equal(t, want, line.Quantity, raw)
		}
	}

	for _, raw := range []string{"Martillo 7,5", "Martillo 1.5", "Total 12.500", "IVA 2.375", "Neto: 9.000"} {
		_, ok := parseLine(raw)
		assert.False(t, ok, raw)
	}
}

func TestParseLineNeedsAName(t *testing.T) {
	for _, raw := range []string{"", "12", "ab 4", "1234 5678 9"} {
		_, ok := parseLine(raw)
		assert.False(t, ok, raw)
	}
}

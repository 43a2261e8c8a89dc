package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	assert.Equal(t, "Tornillos & Pernos", Text("  Tornillos &amp; Pernos "))
	assert.Equal(t, "hola", Text(`<script>alert(1)</script><b>hola</b>`))
	assert.Equal(t, "Martillo 16oz", Text("Martillo 16oz"))
}

func TestOptionalText(t *testing.T) {
	assert.Nil(t, OptionalText(nil))
	blank := "<p> </p>"
	assert.Nil(t, OptionalText(&blank))
	v := "<i>nota</i>"
	assert.Equal(t, "nota", *OptionalText(&v))
}

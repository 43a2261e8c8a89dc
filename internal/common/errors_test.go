package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	err := ErrNotFound.WithDetails("product not found")

	assert.Nil(t, ErrNotFound.Details)
	assert.Equal(t, "product not found", err.Details)
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
}

func TestAPIErrorIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", ErrConflict.WithDetails("dup"))

	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, ErrNotFound))

	apiErr, ok := IsAPIError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "dup", apiErr.Details)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(21, 2, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = NewPagination(0, 0, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.Equal(t, 1, p.CurrentPage)
	assert.False(t, p.HasNext)
}

package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPrefersPrefixedValue(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	assert.Equal(t, "console", Get("LOG_FORMAT", "json"))

	t.Setenv("GIGESCROW_LOG_FORMAT", "json")
	assert.Equal(t, "json", Get("LOG_FORMAT", "text"))
	assert.Equal(t, "json", Get("GIGESCROW_LOG_FORMAT", "text"))
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("GIGESCROW_UNSET_FOR_TEST", "  ")
	assert.Equal(t, "fallback", Get("UNSET_FOR_TEST", "fallback"))
}

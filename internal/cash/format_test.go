package cash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0", formatCash(0))
	assert.Equal(t, "999", formatCash(999))
	assert.Equal(t, "1,000", formatCash(1000))
	assert.Equal(t, "1,234,567", formatCash(1234567))
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "+0", formatDelta(0))
	assert.Equal(t, "+56", formatDelta(56))
	assert.Equal(t, "+1,090", formatDelta(1090))
	assert.Equal(t, "-5", formatDelta(-5))
	assert.Equal(t, "-1,234", formatDelta(-1234))
}

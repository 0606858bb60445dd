package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "10.00", FormatCents(1000))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "20.50", FormatCents(2050))
}

func TestParsePriceCents(t *testing.T) {
	cents, err := ParsePriceCents("10")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cents)

	cents, err = ParsePriceCents("12.99")
	require.NoError(t, err)
	assert.Equal(t, int64(1299), cents)

	cents, err = ParsePriceCents("1.50")
	require.NoError(t, err)
	assert.Equal(t, int64(150), cents)

	for _, raw := range []string{"", "abc", "0", "-1", "1.999"} {
		_, err := ParsePriceCents(raw)
		assert.Error(t, err, raw)
	}
}

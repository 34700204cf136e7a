package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		gross, fee, net, commission string
	}{
		{"80", "10", "72", "8"},
		{"40", "10", "36", "4"},
		{"33.33", "10", "30", "3.33"},
		{"0.05", "10", "0.04", "0.01"},
		{"100", "0", "100", "0"},
	}
	for _, tt := range tests {
		net, commission := Split(d(tt.gross), d(tt.fee))
		assert.True(t, net.Equal(d(tt.net)), "gross %s net want %s got %s", tt.gross, tt.net, net)
		assert.True(t, commission.Equal(d(tt.commission)), "gross %s commission want %s got %s", tt.gross, tt.commission, commission)
		assert.True(t, net.Add(commission).Equal(d(tt.gross)))
	}
}

func TestProportional(t *testing.T) {
	assert.True(t, Proportional(d("100"), d("150"), d("120")).Equal(d("80")))
	assert.True(t, Proportional(d("50"), d("150"), d("120")).Equal(d("40")))
	assert.True(t, Proportional(d("10"), d("30"), d("20")).Equal(d("6.67")))
	assert.True(t, Proportional(d("10"), Zero, d("20")).IsZero())
}

func TestClamp(t *testing.T) {
	assert.True(t, Clamp(d("-3"), Zero, d("100")).IsZero())
	assert.True(t, Clamp(d("130"), Zero, d("100")).Equal(d("100")))
	assert.True(t, Clamp(d("70"), Zero, d("100")).Equal(d("70")))
}

func TestEqualCents(t *testing.T) {
	assert.True(t, EqualCents(d("72.001"), d("72")))
	assert.False(t, EqualCents(d("72.01"), d("72")))
}

func TestIsCents(t *testing.T) {
	assert.True(t, IsCents(d("45.10")))
	assert.True(t, IsCents(d("45.100")))
	assert.False(t, IsCents(d("45.005")))
}

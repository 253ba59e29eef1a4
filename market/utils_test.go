package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Frequency
		wantErr bool
	}{
		{"D1", Daily, false},
		{"daily", Daily, false},
		{"m5", Minute5, false},
		{"H1", Hour1, false},
		{"1m", Minute1, false},
		{"W1", 0, true},
		{"X9", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFrequency(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFrequencyHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5*time.Minute, Minute5.Duration())
	assert.True(t, Minute5.Intraday())
	assert.False(t, Daily.Intraday())
	assert.Equal(t, "H4", Hour4.String())
	assert.Equal(t, "D1", Daily.String())
	assert.Equal(t, "45s", Frequency(45).String())
}

func TestAssetClass(t *testing.T) {
	t.Parallel()

	c, err := ParseAssetClass("Crypto")
	require.NoError(t, err)
	assert.Equal(t, Crypto, c)
	assert.True(t, c.Divisible())
	assert.False(t, Stock.Divisible())
	assert.False(t, Future.Divisible())

	c, err = ParseAssetClass("")
	require.NoError(t, err)
	assert.Equal(t, Stock, c)

	_, err = ParseAssetClass("bond")
	assert.Error(t, err)
	assert.Equal(t, "AssetClass(9)", AssetClass(9).String())
}

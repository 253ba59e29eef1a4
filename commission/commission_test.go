package commission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		model Model
		qty   float64
		price float64
		want  float64
	}{
		{"fixed", Fixed{Amount: 1.5}, 100, 10, 1.5},
		{"zero", Fixed{}, -3, 10, 0},
		{"bps buy", Bps{Bps: 10}, 100, 50, 5},
		{"bps sell", Bps{Bps: 10}, -100, 50, 5},
		{"tiered per share", DefaultTiered(), 1000, 50, 5},
		{"tiered minimum", DefaultTiered(), 10, 50, 1},
		{"tiered capped by rate", DefaultTiered(), 1000, 0.2, 2},
		{"tiered short", DefaultTiered(), -1000, 50, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.model.Calculate(tt.qty, tt.price), 1e-12)
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	m, err := New("bps", 2)
	require.NoError(t, err)
	assert.Equal(t, Bps{Bps: 2}, m)

	m, err = New("", 0)
	require.NoError(t, err)
	assert.Equal(t, Fixed{}, m)

	_, err = New("percent", 1)
	assert.Error(t, err)
}

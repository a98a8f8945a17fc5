package strategies

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/types"
)

func TestListIsSortedAndComplete(t *testing.T) {
	list := List()
	require.Len(t, list, 3)
	assert.True(t, sort.SliceIsSorted(list, func(i, j int) bool { return list[i].Key < list[j].Key }))
	for _, d := range list {
		assert.NotEmpty(t, d.Key)
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.Description)
		assert.NotNil(t, d.New)
		assert.NotEmpty(t, d.Params, "%s has no params", d.Key)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		needle  string
		wantKey string
		wantErr error
	}{
		{"by key", "sigma_extreme", "sigma_extreme", nil},
		{"by display name", "Sigma Extreme", "sigma_extreme", nil},
		{"case insensitive", " VOLATILITY_BREAKOUT ", "volatility_breakout", nil},
		{"unknown", "donchian", "", ErrUnknownStrategy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Get(tc.needle)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantKey, d.Key)
		})
	}
}

func TestGetDefaultsPassValidation(t *testing.T) {
	for _, d := range List() {
		merged, err := MergeParams(nil, d.Params)
		require.NoError(t, err, d.Key)
		assert.Len(t, merged, len(d.Params))
	}
}

func TestNormalizeSide(t *testing.T) {
	tests := []struct {
		in      string
		want    types.Side
		wantErr bool
	}{
		{"LONG", types.SideBuy, false},
		{"short", types.SideSell, false},
		{"buy", types.SideBuy, false},
		{"SELL", types.SideSell, false},
		{"hold", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeSide(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, types.ErrUnknownSide)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

package receipts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"decimal string", "12.50", 12.5},
		{"trailing text", "12.50 EUR", 12.5},
		{"float", 3.25, 3.25},
		{"int", 7, 7},
		{"json number", json.Number("9.99"), 9.99},
		{"zero", "0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParsePriceRejects(t *testing.T) {
	_, err := ParsePrice("abc")
	assert.ErrorIs(t, err, entity.ErrNotANumber)

	_, err = ParsePrice(nil)
	assert.ErrorIs(t, err, entity.ErrNotANumber)

	_, err = ParsePrice(-4.0)
	assert.ErrorIs(t, err, entity.ErrNegativeAmount)

	_, err = ParsePrice([]string{"1"})
	assert.ErrorIs(t, err, entity.ErrNotANumber)
}

func TestParseEuropeanDateTime(t *testing.T) {
	got, err := ParseEuropeanDateTime("25.12.2023 14:30")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-25T14:30:00.000Z", got)

	got, err = ParseEuropeanDateTime("1.2.2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01T00:00:00.000Z", got)

	for _, bad := range []string{"31.02.2023 10:00", "25.12.2023 24:00", "2023-12-25", "25/12/2023"} {
		_, err := ParseEuropeanDateTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeDate(t *testing.T) {
	got, err := NormalizeDate("")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = NormalizeDate("25.12.2023 14:30")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-25T14:30:00.000Z", got)

	got, err = NormalizeDate("2023-12-25T15:30:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-25T14:30:00.000Z", got)

	_, err = NormalizeDate("yesterday")
	assert.Error(t, err)
}

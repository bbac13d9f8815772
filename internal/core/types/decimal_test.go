package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "1.5000", NewQuantityFromFloat64(1.5).String())
	assert.Equal(t, "0.0001", Quantity(1).String())
	assert.Equal(t, "-2.2500", NewQuantityFromFloat64(-2.25).String())
}

func TestQuantityJSONRoundTrip(t *testing.T) {
	q := NewQuantityFromFloat64(12.3456)

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Equal(t, "12.3456", string(data))

	var parsed Quantity
	require.NoError(t, json.Unmarshal([]byte(`"12.3456"`), &parsed))
	assert.Equal(t, q, parsed)

	require.NoError(t, json.Unmarshal([]byte(`12.3456`), &parsed))
	assert.Equal(t, q, parsed)
}

func TestQuantityParseTruncatesExtraDigits(t *testing.T) {
	var q Quantity
	require.NoError(t, json.Unmarshal([]byte(`0.123456`), &q))
	assert.Equal(t, Quantity(1234), q)
}

func TestRoundCostHalfAwayFromZero(t *testing.T) {
	assert.True(t, RoundCost(MustMoney("1.00005")).Equal(MustMoney("1.0001")))
	assert.True(t, RoundCost(MustMoney("-1.00005")).Equal(MustMoney("-1.0001")))
	assert.True(t, RoundCost(MustMoney("2.00004")).Equal(MustMoney("2")))
}

func TestQuantityDecimalConversion(t *testing.T) {
	q := NewQuantityFromFloat64(3.5)
	assert.True(t, q.Decimal().Equal(MustMoney("3.5")))
	assert.Equal(t, q, NewQuantityFromDecimal(q.Decimal()))
}

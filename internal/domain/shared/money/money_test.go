package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staynest/internal/domain/shared/money"
)

func TestNewValidatesCurrency(t *testing.T) {
	m, err := money.New(2500, "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)

	_, err = money.New(100, "")
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)

	_, err = money.New(100, "EURO")
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)
}

func TestAddAndSubRequireMatchingCurrencies(t *testing.T) {
	a := money.Must(1000, "USD")
	b := money.Must(250, "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.Amount)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, int64(750), diff.Amount)

	_, err = a.Add(money.Must(100, "EUR"))
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestApplyRateRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		bp     int64
		want   int64
	}{
		{"ten percent of 100000", 100000, 1000, 10000},
		{"eight percent of 115000", 115000, 800, 9200},
		{"rounds half up", 105, 500, 5},     // 5.25 -> 5
		{"rounds 0.5 up", 100, 50, 1},       // 0.5 -> 1
		{"tiny amount", 1, 800, 0},          // 0.08 -> 0
		{"zero rate", 100000, 0, 0},
		{"zero amount", 0, 1000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := money.Must(tc.amount, "USD")
			got := m.ApplyRate(tc.bp)
			assert.Equal(t, tc.want, got.Amount)
			assert.Equal(t, "USD", got.Currency)
		})
	}
}

func TestMultiply(t *testing.T) {
	m := money.Must(25000, "USD")
	assert.Equal(t, int64(100000), m.Multiply(4).Amount)
}

func TestSignHelpers(t *testing.T) {
	assert.True(t, money.Money{Amount: -1, Currency: "USD"}.IsNegative())
	assert.True(t, money.Must(0, "USD").IsZero())
	assert.False(t, money.Must(1, "USD").IsZero())
}

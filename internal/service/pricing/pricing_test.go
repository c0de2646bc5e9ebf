package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculator_ScenarioA(t *testing.T) {
	q := NewCalculator(65000).Quote(2, false).Rounded()

	assert.Equal(t, int64(130000), q.BaseTotal)
	assert.Equal(t, int64(130000), q.Subtotal)
	assert.Equal(t, int64(9750), q.Tax)
	assert.Equal(t, int64(139750), q.Total)
}

func TestCalculator_ScenarioB(t *testing.T) {
	quote := NewCalculator(65000).Quote(2, true)
	q := quote.Rounded()

	assert.Equal(t, LimitedMultiplier, quote.Multiplier)
	assert.Equal(t, int64(143000), q.Subtotal)
	assert.Equal(t, int64(10725), q.Tax)
	assert.Equal(t, int64(153725), q.Total)
}

func TestCalculator_TotalMatchesClosedForm(t *testing.T) {
	for _, base := range []int64{40000, 70000, 120000} {
		calc := NewCalculator(base)
		for nights := 1; nights <= 30; nights++ {
			for _, limited := range []bool{false, true} {
				mult := 1.0
				if limited {
					mult = 1.1
				}
				want := int64(math.Round(float64(base) * float64(nights) * mult * 1.075))
				got := calc.Quote(nights, limited)

				assert.Equal(t, want, got.Rounded().Total, "base=%d nights=%d limited=%v", base, nights, limited)
				assert.Equal(t, Round(got.Subtotal+got.Tax), got.Rounded().Total)
			}
		}
	}
}

func TestCalculator_ZeroNights(t *testing.T) {
	q := NewCalculator(65000).Quote(0, false)
	assert.Zero(t, q.Total)
}

func TestQuote_RepeatedRecalculationIsStable(t *testing.T) {
	calc := NewCalculator(65000)
	first := calc.Quote(3, true)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, calc.Quote(3, true))
	}
}

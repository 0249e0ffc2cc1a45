package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineTotal(t *testing.T) {
	assert.Equal(t, 1200.0, LineTotal(10, 120, 0))
	assert.Equal(t, 1080.0, LineTotal(10, 120, 10))
	// rounding half-up to 2 decimals
	assert.Equal(t, 0.01, LineTotal(1, 0.005, 0))
	assert.Equal(t, 33.33, LineTotal(3, 11.11, 0))
}

func TestCalculateTotalsFixture(t *testing.T) {
	// 12000 at 18% GST: 2160 tax, 14160 total
	totals := CalculateTotals([]float64{12000}, 0, 18, false)
	assert.Equal(t, 12000.0, totals.Subtotal)
	assert.Equal(t, 2160.0, totals.TaxAmount)
	assert.Equal(t, 14160.0, totals.Total)
	assert.Equal(t, 1080.0, totals.CGSTAmount)
	assert.Equal(t, 1080.0, totals.SGSTAmount)
	assert.Equal(t, 0.0, totals.IGSTAmount)
}

func TestCalculateTotalsInterState(t *testing.T) {
	totals := CalculateTotals([]float64{12000}, 0, 18, true)
	assert.Equal(t, 2160.0, totals.IGSTAmount)
	assert.Equal(t, 0.0, totals.CGSTAmount)
	assert.Equal(t, 0.0, totals.SGSTAmount)
}

func TestCalculateTotalsAlgebra(t *testing.T) {
	cases := [][]float64{
		{},
		{100},
		{99.99, 0.01},
		{1234.56, 789.01, 5000},
	}
	for _, lines := range cases {
		totals := CalculateTotals(lines, 0, 18, false)
		assert.InDelta(t, totals.Subtotal+totals.TaxAmount, totals.Total, 0.001)
		assert.InDelta(t, totals.Subtotal*18/100, totals.TaxAmount, 0.005)
		assert.InDelta(t, totals.CGSTAmount+totals.SGSTAmount, totals.TaxAmount, 0.001)
	}
}

func TestCalculateTotalsDocumentDiscount(t *testing.T) {
	totals := CalculateTotals([]float64{1000}, 100, 18, false)
	assert.Equal(t, 1000.0, totals.Subtotal)
	assert.Equal(t, 162.0, totals.TaxAmount)
	assert.Equal(t, 1062.0, totals.Total)
}

func TestApplyPayment(t *testing.T) {
	paid, balance := ApplyPayment(14160, 0, 14160)
	assert.Equal(t, 14160.0, paid)
	assert.Equal(t, 0.0, balance)

	paid, balance = ApplyPayment(14160, 0, 5000)
	assert.Equal(t, 5000.0, paid)
	assert.Equal(t, 9160.0, balance)

	paid, balance = ApplyPayment(14160, 5000, 5000)
	assert.Equal(t, 10000.0, paid)
	assert.Equal(t, 4160.0, balance)

	// overpayment floors the balance at zero
	paid, balance = ApplyPayment(100, 90, 50)
	assert.Equal(t, 140.0, paid)
	assert.Equal(t, 0.0, balance)
}

func TestApplyPaymentSequence(t *testing.T) {
	const total = 14160.0
	payments := []float64{1000, 2000, 3000, 8160}

	paid, balance := 0.0, total
	for _, p := range payments {
		paid, balance = ApplyPayment(total, paid, p)
	}
	assert.Equal(t, total, paid)
	assert.Equal(t, 0.0, balance)
}

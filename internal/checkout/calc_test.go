package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/documents"
)

func cartOf(t *testing.T, products ...ProductInfo) Draft {
	t.Helper()
	var d Draft
	for _, p := range products {
		require.NoError(t, d.AddProduct(p))
	}
	return d
}

func TestCalculateSubtotalAndProfit(t *testing.T) {
	d := cartOf(t,
		ProductInfo{ProductID: 1, Name: "Mineral water", SalePrice: 50000, CostPrice: 30000, Stock: 10},
		ProductInfo{ProductID: 2, Name: "Instant coffee", SalePrice: 150000, CostPrice: 100000, Stock: 5},
	)
	require.NoError(t, d.UpdateLine(1, 2, 50000, 0))

	totals := Calculate(d)
	assert.InDelta(t, 250000.0, totals.Subtotal, 1e-9)
	assert.InDelta(t, 90000.0, totals.TotalProfit, 1e-9)
}

func TestCalculateDiscountModes(t *testing.T) {
	d := cartOf(t, ProductInfo{ProductID: 1, SalePrice: 100000, CostPrice: 60000, Stock: 10})

	d.DiscountType = documents.DiscountPercent
	d.DiscountValue = 10
	assert.InDelta(t, 10000.0, Calculate(d).DiscountAmount, 1e-9)

	d.DiscountType = documents.DiscountAmount
	d.DiscountValue = 15000
	assert.InDelta(t, 15000.0, Calculate(d).DiscountAmount, 1e-9)
}

func TestCalculateVATOnlyWhenEnabled(t *testing.T) {
	d := cartOf(t, ProductInfo{ProductID: 1, SalePrice: 100000, Stock: 10})
	d.VATAmount = 8000

	assert.Equal(t, 0.0, Calculate(d).TotalVAT)

	d.VATEnabled = true
	totals := Calculate(d)
	assert.InDelta(t, 8000.0, totals.TotalVAT, 1e-9)
	assert.InDelta(t, 108000.0, totals.FinalAmount, 1e-9)
}

func TestCalculateClampsFinalAmount(t *testing.T) {
	d := cartOf(t, ProductInfo{ProductID: 1, SalePrice: 50000, Stock: 10})
	d.DiscountValue = 80000
	d.CustomerPayment = 20000

	totals := Calculate(d)
	assert.Equal(t, 0.0, totals.FinalAmount)
	assert.Equal(t, 20000.0, totals.Change)
}

func TestCalculateChangeNeverNegative(t *testing.T) {
	d := cartOf(t, ProductInfo{ProductID: 1, SalePrice: 100000, Stock: 10})

	d.CustomerPayment = 150000
	assert.InDelta(t, 50000.0, Calculate(d).Change, 1e-9)

	d.CustomerPayment = 100000
	assert.Equal(t, 0.0, Calculate(d).Change)

	d.CustomerPayment = 50000
	assert.Equal(t, 0.0, Calculate(d).Change)
}

func TestQuickAmounts(t *testing.T) {
	assert.Equal(t, []float64{123000, 150000, 200000, 300000}, quickAmounts(123000))
	assert.Equal(t, []float64{100000, 200000}, quickAmounts(100000))
	assert.Equal(t, []float64{0, 100000}, quickAmounts(0))
	assert.Equal(t, []float64{72000, 100000, 200000}, quickAmounts(72000))
}

func TestQuickAmountsProperties(t *testing.T) {
	for _, final := range []float64{1, 49999, 50000, 99999, 177000, 1234567} {
		got := quickAmounts(final)
		require.NotEmpty(t, got)
		assert.LessOrEqual(t, len(got), 4)
		assert.Equal(t, final, got[0])
		for i := 1; i < len(got); i++ {
			assert.Greater(t, got[i], got[i-1])
		}
	}
}

func TestFormatVND(t *testing.T) {
	assert.Equal(t, "1.234.567", FormatVND(1234567))
	assert.Equal(t, "0", FormatVND(0))
}

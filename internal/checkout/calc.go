package checkout

import (
	"math"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/meridian-pos/meridian-pos/internal/documents"
)

const (
	quickStepSmall = 50000
	quickStepLarge = 100000
	maxQuickCount  = 4
)

// Totals is the derived financial state of a draft. Every field is a pure
// function of the draft snapshot.
type Totals struct {
	Subtotal       float64   `json:"subtotal"`
	DiscountAmount float64   `json:"discount_amount"`
	TotalVAT       float64   `json:"total_vat"`
	FinalAmount    float64   `json:"final_amount"`
	Change         float64   `json:"change"`
	TotalProfit    float64   `json:"total_profit"`
	QuickAmounts   []float64 `json:"quick_amounts"`
	FinalDisplay   string    `json:"final_display"`
	ChangeDisplay  string    `json:"change_display"`
}

var vndPrinter = message.NewPrinter(language.Vietnamese)

// FormatVND renders an amount with Vietnamese digit grouping.
func FormatVND(v float64) string {
	return vndPrinter.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(0)))
}

// Calculate derives totals from a draft. No I/O, no mutation; safe to call
// on every keystroke.
func Calculate(d Draft) Totals {
	var subtotal, profit float64
	for _, l := range d.Lines {
		subtotal += l.TotalPrice
		profit += l.Profit
	}

	discount := discountAmount(d, subtotal)

	var vat float64
	if d.VATEnabled {
		vat = d.VATAmount
	}

	final := subtotal - discount + d.ExtraFee + vat
	if final < 0 {
		final = 0
	}

	change := d.CustomerPayment - final
	if change < 0 {
		change = 0
	}

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TotalVAT:       vat,
		FinalAmount:    final,
		Change:         change,
		TotalProfit:    profit,
		QuickAmounts:   quickAmounts(final),
		FinalDisplay:   FormatVND(final),
		ChangeDisplay:  FormatVND(change),
	}
}

func discountAmount(d Draft, subtotal float64) float64 {
	if d.DiscountType == documents.DiscountPercent {
		return subtotal * d.DiscountValue / 100
	}
	return d.DiscountValue
}

func ceilTo(v float64, step float64) float64 {
	return math.Ceil(v/step) * step
}

// quickAmounts suggests round tender amounts at or above the payable total:
// the exact amount, the next 50k and 100k steps, and one 100k step beyond.
// Deduplicated, ascending, at most four.
func quickAmounts(final float64) []float64 {
	candidates := []float64{
		final,
		ceilTo(final, quickStepSmall),
		ceilTo(final, quickStepLarge),
		ceilTo(final, quickStepLarge) + quickStepLarge,
	}

	seen := make(map[float64]bool, len(candidates))
	out := make([]float64, 0, maxQuickCount)
	for _, c := range candidates {
		if c < final || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Float64s(out)
	if len(out) > maxQuickCount {
		out = out[:maxQuickCount]
	}
	return out
}

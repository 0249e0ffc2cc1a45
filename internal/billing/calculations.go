package billing

import "github.com/shopspring/decimal"

// DefaultGSTRate applies when a caller does not supply a rate.
const DefaultGSTRate = 18.0

// Totals carries the computed money fields for a document.
type Totals struct {
	Subtotal   float64
	TaxAmount  float64
	CGSTAmount float64
	SGSTAmount float64
	IGSTAmount float64
	Total      float64
}

// LineTotal computes quantity * unitPrice less the percentage discount,
// rounded half-up to 2 decimals. All money math in this package goes through
// decimal with that rounding policy; floats only appear at the boundaries.
func LineTotal(quantity, unitPrice, discountPercent float64) float64 {
	qty := decimal.NewFromFloat(quantity)
	price := decimal.NewFromFloat(unitPrice)
	gross := qty.Mul(price)
	discount := gross.Mul(decimal.NewFromFloat(discountPercent)).Div(decimal.NewFromInt(100))
	return gross.Sub(discount).Round(2).InexactFloat64()
}

// CalculateTotals sums line totals and applies GST at the given rate to the
// subtotal net of the document-level discount. Intra-state supplies split the
// tax evenly into CGST and SGST; inter-state supplies carry it all as IGST.
func CalculateTotals(lineTotals []float64, discountAmount, gstRate float64, interState bool) Totals {
	subtotal := decimal.Zero
	for _, lt := range lineTotals {
		subtotal = subtotal.Add(decimal.NewFromFloat(lt))
	}
	subtotal = subtotal.Round(2)

	taxable := subtotal.Sub(decimal.NewFromFloat(discountAmount))
	tax := taxable.Mul(decimal.NewFromFloat(gstRate)).Div(decimal.NewFromInt(100)).Round(2)
	total := taxable.Add(tax)

	t := Totals{
		Subtotal:  subtotal.InexactFloat64(),
		TaxAmount: tax.InexactFloat64(),
		Total:     total.InexactFloat64(),
	}
	if interState {
		t.IGSTAmount = tax.InexactFloat64()
	} else {
		half := tax.Div(decimal.NewFromInt(2)).Round(2)
		t.CGSTAmount = half.InexactFloat64()
		t.SGSTAmount = tax.Sub(half).Round(2).InexactFloat64()
	}
	return t
}

// ApplyPayment recomputes paid/balance after a payment. Balance floors at
// zero; overpayment never produces a negative balance.
func ApplyPayment(totalAmount, paidAmount, payment float64) (newPaid, newBalance float64) {
	paid := decimal.NewFromFloat(paidAmount).Add(decimal.NewFromFloat(payment)).Round(2)
	balance := decimal.NewFromFloat(totalAmount).Sub(paid).Round(2)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return paid.InexactFloat64(), balance.InexactFloat64()
}

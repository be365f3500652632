package sales

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/sales/paymentmethods"
)

var (
	hundred = decimal.NewFromInt(100)
	// PaymentTolerance is the largest accepted gap between applied payments
	// and the sale total.
	PaymentTolerance = decimal.RequireFromString("0.01")
)

const (
	// MoneyScale and QuantityScale match the NUMERIC columns sales are
	// stored in.
	MoneyScale    = 2
	QuantityScale = 4
)

// FitsScale reports whether v has no digits beyond places decimals, so it
// is stored without rounding.
func FitsScale(v decimal.Decimal, places int32) bool {
	return v.Equal(v.Round(places))
}

// CalculateLineTotals prices one line. taxPercent is a percentage (16 = 16%).
// Amounts are rounded to cents.
func CalculateLineTotals(quantity, unitPrice, taxPercent decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	subtotal = quantity.Mul(unitPrice).Round(2)
	tax = subtotal.Mul(taxPercent).Div(hundred).Round(2)
	total = subtotal.Add(tax)
	return
}

// Totals are the header amounts of a sale.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// SumTotals computes total = subtotal + tax - discount over priced lines.
func SumTotals(lines []Line, discount decimal.Decimal) Totals {
	t := Totals{Subtotal: decimal.Zero, Tax: decimal.Zero, Discount: discount}
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal)
		t.Tax = t.Tax.Add(l.Tax)
	}
	t.Total = t.Subtotal.Add(t.Tax).Sub(discount)
	return t
}

// Tender is a payment with its resolved kind.
type Tender struct {
	MethodID int64
	Kind     paymentmethods.Kind
	Amount   decimal.Decimal
}

// Reconciliation is the outcome of applying tenders to a total.
type Reconciliation struct {
	Payments []Payment
	Applied  decimal.Decimal
}

// Difference is Applied - total.
func (r Reconciliation) Difference(total decimal.Decimal) decimal.Decimal {
	return r.Applied.Sub(total)
}

// Balanced reports whether the applied amount is within PaymentTolerance
// of total.
func (r Reconciliation) Balanced(total decimal.Decimal) bool {
	return r.Difference(total).Abs().LessThanOrEqual(PaymentTolerance)
}

// ReconcilePayments applies tenders in order against a running amount still
// owed. Cash returns the excess over what is still owed as change; every
// other kind is applied in full.
func ReconcilePayments(total decimal.Decimal, tenders []Tender) Reconciliation {
	owed := total
	rec := Reconciliation{Payments: make([]Payment, 0, len(tenders)), Applied: decimal.Zero}
	for _, t := range tenders {
		p := Payment{MethodID: t.MethodID, Kind: t.Kind, Amount: t.Amount, Change: decimal.Zero, EffectiveAmount: t.Amount}
		if t.Kind == paymentmethods.KindCash {
			due := decimal.Max(owed, decimal.Zero)
			if t.Amount.GreaterThan(due) {
				p.Change = t.Amount.Sub(due)
				p.EffectiveAmount = t.Amount.Sub(p.Change)
			}
		}
		owed = owed.Sub(p.EffectiveAmount)
		rec.Applied = rec.Applied.Add(p.EffectiveAmount)
		rec.Payments = append(rec.Payments, p)
	}
	return rec
}

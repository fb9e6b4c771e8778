// Package reconcile derives payment-status tiers and remaining balances
// for normalized invoices and payrolls. Classification is a pure function
// of the latest snapshot, never a tracked state transition: a backend data
// fix can legitimately move an invoice "backward" between fetches.
package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridian-ops/meridian/internal/canonical"
)

// Tier is one of the three payment-status buckets used for tab filtering.
type Tier string

const (
	TierUnpaid  Tier = "unpaid"
	TierPartial Tier = "partial"
	TierPaid    Tier = "paid"
)

// ParseTier maps a query-string value onto a tier. Empty means no filter.
func ParseTier(s string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierUnpaid:
		return TierUnpaid, true
	case TierPartial:
		return TierPartial, true
	case TierPaid:
		return TierPaid, true
	default:
		return "", false
	}
}

// Classify buckets an invoice by its backend status string. The string
// always wins over amount-derived signals: an invoice with a nonzero
// paidAmount but no recognizable status is Unpaid. That precedence mirrors
// the backend's observed behaviour and is relied on by the tab filters.
func Classify(inv canonical.PurchaseInvoice) Tier {
	return classifyStatus(inv.RawStatus)
}

// ClassifyPayroll applies the same bucketing to a payroll record.
func ClassifyPayroll(p canonical.Payroll) Tier {
	return classifyStatus(p.RawStatus)
}

func classifyStatus(raw string) Tier {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "paid":
		return TierPaid
	case strings.Contains(s, "partial"):
		return TierPartial
	default:
		return TierUnpaid
	}
}

// Remaining derives the displayable remaining balance. Precedence: an
// explicit remaining field, then total minus paid when anything was paid,
// then zero for Paid invoices, then the full total. Never negative.
func Remaining(inv canonical.PurchaseInvoice) decimal.Decimal {
	if inv.Remaining != nil {
		return clamp(*inv.Remaining)
	}
	if inv.PaidAmount.IsPositive() {
		return clamp(inv.TotalPayment.Sub(inv.PaidAmount))
	}
	if Classify(inv) == TierPaid {
		return decimal.Zero
	}
	return clamp(inv.TotalPayment)
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// InvoiceView is the UI-consumable invoice: the canonical entity plus the
// derived tier and balance.
type InvoiceView struct {
	canonical.PurchaseInvoice
	Tier      Tier            `json:"tier"`
	Remaining decimal.Decimal `json:"remaining"`
}

// BuildView computes the derived fields for one invoice.
func BuildView(inv canonical.PurchaseInvoice) InvoiceView {
	return InvoiceView{
		PurchaseInvoice: inv,
		Tier:            Classify(inv),
		Remaining:       Remaining(inv),
	}
}

// BuildViews maps BuildView over a list, preserving order.
func BuildViews(invs []canonical.PurchaseInvoice) []InvoiceView {
	out := make([]InvoiceView, 0, len(invs))
	for _, inv := range invs {
		out = append(out, BuildView(inv))
	}
	return out
}

// PayrollView is the UI-consumable payroll record with its derived tier.
type PayrollView struct {
	canonical.Payroll
	Tier Tier `json:"tier"`
}

// BuildPayrollViews computes tiers for a payroll list, preserving order.
func BuildPayrollViews(payrolls []canonical.Payroll) []PayrollView {
	out := make([]PayrollView, 0, len(payrolls))
	for _, p := range payrolls {
		out = append(out, PayrollView{Payroll: p, Tier: ClassifyPayroll(p)})
	}
	return out
}

// FilterByTier keeps the views in the given bucket.
func FilterByTier(views []InvoiceView, tier Tier) []InvoiceView {
	out := make([]InvoiceView, 0, len(views))
	for _, v := range views {
		if v.Tier == tier {
			out = append(out, v)
		}
	}
	return out
}

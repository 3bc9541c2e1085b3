// Package allocation computes one participant's share of a receipt.
//
// This is the single canonical implementation of the splitting arithmetic.
// Request handlers run it before persisting a selection and the receipt
// response carries enough data for a client to reproduce it exactly, so the
// number a user sees at selection time is the number that gets stored.
package allocation

// Item is the minimal view of a receipt line item the engine needs.
type Item struct {
	ID        string
	Qty       int
	UnitPrice float64
}

// ChargeRates carries the receipt-level figures the per-user amounts are
// derived from. Total is informational only; it never feeds the arithmetic.
type ChargeRates struct {
	Subtotal       float64
	TaxPercent     float64
	ServicePercent float64
	Rounding       float64
	Total          float64
}

// Allocation is the computed result for one user's selection. All fields are
// always populated; an empty selection yields the zero value.
type Allocation struct {
	// SelectedSubtotal is the sum of qty*unit_price/divisor over the
	// selected items.
	SelectedSubtotal float64

	// Proportion is SelectedSubtotal over the receipt subtotal, 0 when the
	// receipt subtotal is zero. It may exceed 1 when upstream data is
	// inconsistent; that is reported as-is, not clamped.
	Proportion float64

	TaxAmount      float64
	ServiceAmount  float64
	RoundingAmount float64

	// FinalTotal is what this user owes:
	// SelectedSubtotal + TaxAmount + ServiceAmount + RoundingAmount.
	FinalTotal float64
}

// Compute derives a user's allocation from the receipt's full item list, its
// charge rates, the user's selected item IDs, and per-item share divisors.
//
// Selected IDs that match no item contribute nothing. A missing, zero, or
// negative divisor is treated as 1; range validation (1-99) belongs to the
// request boundary, the floor here is only a guard. Tax and service apply to
// the user's selected subtotal; the rounding adjustment is distributed in
// proportion to the user's share of the receipt subtotal.
//
// Pure and deterministic: identical inputs produce bit-identical output.
// Items are summed in list order so float accumulation never varies between
// calls.
func Compute(items []Item, rates ChargeRates, selectedItemIDs []string, itemShares map[string]int) Allocation {
	selected := make(map[string]bool, len(selectedItemIDs))
	for _, id := range selectedItemIDs {
		selected[id] = true
	}

	var selectedSubtotal float64
	for _, item := range items {
		if !selected[item.ID] {
			continue
		}
		itemTotal := float64(item.Qty) * item.UnitPrice
		divisor := itemShares[item.ID]
		if divisor < 1 {
			divisor = 1
		}
		selectedSubtotal += itemTotal / float64(divisor)
	}

	// Zero-subtotal receipts yield proportion 0, not NaN.
	var proportion float64
	if rates.Subtotal > 0 {
		proportion = selectedSubtotal / rates.Subtotal
	}

	taxAmount := rates.TaxPercent / 100 * selectedSubtotal
	serviceAmount := rates.ServicePercent / 100 * selectedSubtotal
	roundingAmount := rates.Rounding * proportion

	return Allocation{
		SelectedSubtotal: selectedSubtotal,
		Proportion:       proportion,
		TaxAmount:        taxAmount,
		ServiceAmount:    serviceAmount,
		RoundingAmount:   roundingAmount,
		FinalTotal:       selectedSubtotal + taxAmount + serviceAmount + roundingAmount,
	}
}

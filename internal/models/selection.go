package models

// UserSelection is one participant's claim on a subset of a receipt's items,
// with optional per-item sharing. At most one selection exists per
// (user, receipt) pair; a second save updates the first.
type UserSelection struct {
	// ID is the unique identifier for the selection (UUID format).
	ID string `json:"id"`

	UserID    string `json:"user_id"`
	ReceiptID string `json:"receipt_id"`

	// SelectedItems are the IDs of the receipt items this user consumed.
	// Items reference the receipt by ID only; an ID that no longer matches
	// a receipt item contributes nothing rather than failing.
	SelectedItems []string `json:"selected_items"`

	// ItemShares maps an item ID to its share divisor: "split this item N
	// ways", so the user owes 1/N of the item total. Items without an
	// entry default to 1. Entries for unselected items are inert.
	ItemShares map[string]int `json:"item_shares"`

	// Cached output of the allocation engine for the current
	// SelectedItems/ItemShares. Recomputed and rewritten on every save.
	CalculatedTotal float64 `json:"calculated_total"`
	TaxAmount       float64 `json:"tax_amount"`
	ServiceAmount   float64 `json:"service_amount"`
	RoundingAmount  float64 `json:"rounding_amount"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

package models

// UserType describes the creator's relationship to the bill they uploaded.
// A payer fronted the money and collects from everyone else; a sharer is
// just recording their own consumption.
type UserType string

const (
	UserTypePayer  UserType = "payer"
	UserTypeSharer UserType = "sharer"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	return t == UserTypePayer || t == UserTypeSharer
}

// Receipt is a parsed or manually entered bill. Receipts are immutable once
// created; there is no edit operation, only re-upload.
type Receipt struct {
	// ID is the unique identifier for the receipt (UUID format).
	ID string `json:"id"`

	// UserID is the user who created the receipt.
	UserID string `json:"user_id"`

	// MerchantName is the merchant as printed on the receipt, possibly in
	// the receipt's original language. MerchantNameEN holds an English
	// translation when the parser produced one.
	MerchantName     string `json:"merchant_name"`
	MerchantNameEN   string `json:"merchant_name_en,omitempty"`
	OriginalLanguage string `json:"original_language,omitempty"`

	// Currency is the ISO 4217 code (e.g. "THB"). Stored and echoed only;
	// this service never converts or formats amounts.
	Currency string `json:"currency"`

	// Charge rates applied on top of the item subtotal.
	TaxPercent     float64 `json:"tax_percent"`
	ServicePercent float64 `json:"service_percent"`

	// Rounding is the signed adjustment the merchant applied to land on a
	// round total. Distributed across participants in proportion to their
	// share of the subtotal.
	Rounding float64 `json:"rounding"`

	Subtotal float64 `json:"subtotal"`
	Total    float64 `json:"total"`

	// RawJSON is the parser's raw payload, kept verbatim for debugging.
	RawJSON       string `json:"raw_json,omitempty"`
	ParserVersion string `json:"parser_version,omitempty"`

	// StorageKey locates the uploaded image, when one exists.
	StorageKey string `json:"storage_key,omitempty"`

	UserType UserType `json:"user_type"`

	// IssuedAt is when the merchant issued the bill (RFC 3339), if known.
	IssuedAt string `json:"issued_at,omitempty"`

	// Items are the line items, ordered by Position.
	Items []ReceiptItem `json:"items"`

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ReceiptItem is one line item belonging to exactly one receipt. Items are
// created atomically with their receipt and deleted with it.
type ReceiptItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string `json:"id"`

	// ReceiptID is the owning receipt.
	ReceiptID string `json:"receipt_id"`

	// Position defines display and processing order, 1-based and
	// contiguous within a receipt at creation time.
	Position int `json:"position"`

	// Name is the item as printed; NameEN an optional English translation.
	Name   string `json:"name"`
	NameEN string `json:"name_en,omitempty"`

	// Qty is the quantity, a positive integer.
	Qty int `json:"qty"`

	// UnitPrice is the price per unit, non-negative.
	UnitPrice float64 `json:"unit_price"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Package scanning turns receipt photos into structured receipt data using
// an external vision model. The rest of the system treats it as an opaque
// gateway: image bytes in, a ParsedReceipt or ErrNotReceipt out.
package scanning

import "errors"

// ErrNotReceipt is returned when the model determines the uploaded image is
// not a receipt at all (a selfie, a menu, a blank page).
var ErrNotReceipt = errors.New("image is not a receipt")

// ParsedItem is one extracted line item.
type ParsedItem struct {
	Name      string  `json:"name"`
	NameEN    string  `json:"name_en,omitempty"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
}

// ParsedReceipt contains the structured data extracted from a receipt image.
type ParsedReceipt struct {
	MerchantName     string       `json:"merchant_name"`
	MerchantNameEN   string       `json:"merchant_name_en,omitempty"`
	OriginalLanguage string       `json:"original_language,omitempty"`
	Currency         string       `json:"currency"`
	Items            []ParsedItem `json:"items"`
	TaxPercent       float64      `json:"tax_percent"`
	ServicePercent   float64      `json:"service_percent"`
	Rounding         float64      `json:"rounding"`
	Subtotal         float64      `json:"subtotal"`
	Total            float64      `json:"total"`

	// NotReceipt is set by the model when the image is not a bill; callers
	// never see it because ParseReceipt maps it to ErrNotReceipt.
	NotReceipt bool `json:"not_receipt,omitempty"`
}

// Scanner defines the interface for receipt parsing operations.
type Scanner interface {
	// ParseReceipt analyzes a receipt image and extracts its structure.
	// Returns ErrNotReceipt when the image does not show a receipt.
	ParseReceipt(imageData []byte, contentType string) (*ParsedReceipt, error)

	// Version identifies the parser (model name and prompt revision) for
	// the receipt's parser_version field.
	Version() string

	// Close closes the scanner and releases resources.
	Close() error
}

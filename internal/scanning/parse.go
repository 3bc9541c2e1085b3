package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseReceiptJSON parses the model's response into a ParsedReceipt. Vision
// models wrap JSON in markdown fences and occasionally add commentary, so
// the object is cut out of the surrounding text before unmarshaling.
func parseReceiptJSON(text string) (*ParsedReceipt, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var parsed ParsedReceipt
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if parsed.NotReceipt {
		return nil, ErrNotReceipt
	}

	normalizeReceipt(&parsed)
	return &parsed, nil
}

// normalizeReceipt cleans up model output so downstream code can rely on the
// documented invariants (positive qty, non-negative prices, derived totals).
func normalizeReceipt(r *ParsedReceipt) {
	r.MerchantName = strings.TrimSpace(r.MerchantName)
	r.MerchantNameEN = strings.TrimSpace(r.MerchantNameEN)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = "THB"
	}

	for i := range r.Items {
		item := &r.Items[i]
		item.Name = strings.TrimSpace(item.Name)
		item.NameEN = strings.TrimSpace(item.NameEN)
		if item.Name == "" {
			item.Name = fmt.Sprintf("Item %d", i+1)
		}
		if item.Qty < 1 {
			item.Qty = 1
		}
		if item.UnitPrice < 0 {
			item.UnitPrice = 0
		}
	}

	if r.TaxPercent < 0 {
		r.TaxPercent = 0
	}
	if r.ServicePercent < 0 {
		r.ServicePercent = 0
	}

	// Models sometimes omit the totals; derive them from the items so the
	// receipt invariant holds either way.
	if r.Subtotal == 0 && len(r.Items) > 0 {
		for _, item := range r.Items {
			r.Subtotal += float64(item.Qty) * item.UnitPrice
		}
	}
	if r.Total == 0 && r.Subtotal > 0 {
		r.Total = r.Subtotal +
			r.Subtotal*r.TaxPercent/100 +
			r.Subtotal*r.ServicePercent/100 +
			r.Rounding
	}
}

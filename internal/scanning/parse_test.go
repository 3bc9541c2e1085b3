package scanning

import (
	"errors"
	"math"
	"testing"
)

func TestParseReceiptJSON(t *testing.T) {
	response := "```json\n" + `{
		"merchant_name": "ร้านส้มตำแซ่บ",
		"merchant_name_en": "Somtam Zaap",
		"original_language": "th",
		"currency": "thb",
		"items": [
			{"name": "ส้มตำไทย", "name_en": "Papaya Salad", "qty": 2, "unit_price": 60},
			{"name": "ข้าวเหนียว", "name_en": "Sticky Rice", "qty": 1, "unit_price": 10}
		],
		"tax_percent": 7,
		"service_percent": 0,
		"rounding": 0,
		"subtotal": 130,
		"total": 139.1
	}` + "\n```"

	parsed, err := parseReceiptJSON(response)
	if err != nil {
		t.Fatalf("parseReceiptJSON failed: %v", err)
	}

	if parsed.MerchantNameEN != "Somtam Zaap" {
		t.Errorf("merchant_name_en = %q", parsed.MerchantNameEN)
	}
	if parsed.Currency != "THB" {
		t.Errorf("currency = %q, want THB (uppercased)", parsed.Currency)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(parsed.Items))
	}
	if parsed.Items[0].Qty != 2 || parsed.Items[0].UnitPrice != 60 {
		t.Errorf("item 0 = %+v", parsed.Items[0])
	}
	if parsed.Total != 139.1 {
		t.Errorf("total = %v, want 139.1", parsed.Total)
	}
}

func TestParseReceiptJSON_NotReceipt(t *testing.T) {
	_, err := parseReceiptJSON(`{"not_receipt": true}`)
	if !errors.Is(err, ErrNotReceipt) {
		t.Errorf("expected ErrNotReceipt, got %v", err)
	}
}

func TestParseReceiptJSON_SurroundingCommentary(t *testing.T) {
	response := `Here is the extracted data:
{"merchant_name": "Cafe", "currency": "THB", "items": [{"name": "Latte", "qty": 1, "unit_price": 80}], "tax_percent": 0, "service_percent": 0, "rounding": 0, "subtotal": 80, "total": 80}
Let me know if you need anything else.`

	parsed, err := parseReceiptJSON(response)
	if err != nil {
		t.Fatalf("parseReceiptJSON failed: %v", err)
	}
	if parsed.MerchantName != "Cafe" {
		t.Errorf("merchant_name = %q", parsed.MerchantName)
	}
}

func TestParseReceiptJSON_NoJSON(t *testing.T) {
	if _, err := parseReceiptJSON("I cannot read this image."); err == nil {
		t.Error("expected error for response without JSON")
	}
}

func TestParseReceiptJSON_Normalization(t *testing.T) {
	response := `{
		"merchant_name": "  Cafe  ",
		"currency": "",
		"items": [
			{"name": "  Latte ", "qty": 0, "unit_price": 80},
			{"name": "", "qty": 1, "unit_price": -5}
		],
		"tax_percent": 7,
		"service_percent": 10,
		"rounding": -0.5
	}`

	parsed, err := parseReceiptJSON(response)
	if err != nil {
		t.Fatalf("parseReceiptJSON failed: %v", err)
	}

	if parsed.MerchantName != "Cafe" {
		t.Errorf("merchant_name = %q, want trimmed", parsed.MerchantName)
	}
	if parsed.Currency != "THB" {
		t.Errorf("currency = %q, want THB default", parsed.Currency)
	}
	if parsed.Items[0].Qty != 1 {
		t.Errorf("qty = %d, want clamp to 1", parsed.Items[0].Qty)
	}
	if parsed.Items[1].Name != "Item 2" {
		t.Errorf("name = %q, want placeholder", parsed.Items[1].Name)
	}
	if parsed.Items[1].UnitPrice != 0 {
		t.Errorf("unit_price = %v, want clamp to 0", parsed.Items[1].UnitPrice)
	}

	// Missing subtotal/total get derived: subtotal 80, total 80*1.17 - 0.5.
	if math.Abs(parsed.Subtotal-80) > 1e-9 {
		t.Errorf("subtotal = %v, want 80", parsed.Subtotal)
	}
	if math.Abs(parsed.Total-93.1) > 1e-9 {
		t.Errorf("total = %v, want 93.1", parsed.Total)
	}
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// shareDivisorMax bounds how many ways a single item can be split. The
// allocation engine tolerates anything, but the API contract is [1,99].
const shareDivisorMax = 99

// decodeJSON decodes the request body into v, translating JSON type errors
// into field-level validation errors.
func decodeJSON(r *http.Request, v any) []fieldError {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "(body)"
		}
		return []fieldError{{
			Field:   field,
			Message: fmt.Sprintf("expected %s", typeErr.Type),
		}}
	}
	if errors.Is(err, io.EOF) {
		return []fieldError{{Field: "(body)", Message: "request body is required"}}
	}
	return []fieldError{{Field: "(body)", Message: "malformed JSON"}}
}

// selectionRequest is the create/update selection body. Both POST and PUT
// share it.
type selectionRequest struct {
	SelectedItems []string       `json:"selected_items"`
	ItemShares    map[string]int `json:"item_shares"`
}

// validate checks the selection payload. Out-of-range divisors are rejected,
// never coerced: clamping inside the engine covers only missing values.
func (req *selectionRequest) validate() []fieldError {
	var errs []fieldError
	if req.SelectedItems == nil {
		errs = append(errs, fieldError{Field: "selected_items", Message: "is required"})
	}
	for _, id := range req.SelectedItems {
		if id == "" {
			errs = append(errs, fieldError{Field: "selected_items", Message: "item ids must be non-empty"})
			break
		}
	}
	if req.ItemShares == nil {
		errs = append(errs, fieldError{Field: "item_shares", Message: "is required"})
	}
	for id, divisor := range req.ItemShares {
		if divisor < 1 || divisor > shareDivisorMax {
			errs = append(errs, fieldError{
				Field:   "item_shares." + id,
				Message: fmt.Sprintf("must be between 1 and %d", shareDivisorMax),
			})
		}
	}
	return errs
}

// createItemRequest is one line item of a receipt creation payload.
type createItemRequest struct {
	Name      string  `json:"name"`
	NameEN    string  `json:"name_en"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
}

// createReceiptRequest is the receipt creation body, covering both parsed
// and manually entered bills.
type createReceiptRequest struct {
	MerchantName     string              `json:"merchant_name"`
	MerchantNameEN   string              `json:"merchant_name_en"`
	OriginalLanguage string              `json:"original_language"`
	Currency         string              `json:"currency"`
	TaxPercent       float64             `json:"tax_percent"`
	ServicePercent   float64             `json:"service_percent"`
	Rounding         float64             `json:"rounding"`
	Subtotal         *float64            `json:"subtotal"`
	Total            *float64            `json:"total"`
	RawJSON          json.RawMessage     `json:"raw_json"`
	ParserVersion    string              `json:"parser_version"`
	IssuedAt         string              `json:"issued_at"`
	StorageKey       string              `json:"storage_key"`
	UserType         string              `json:"user_type"`
	Items            []createItemRequest `json:"items"`
}

func (req *createReceiptRequest) validate() []fieldError {
	var errs []fieldError

	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = "THB"
	} else if len(req.Currency) != 3 {
		errs = append(errs, fieldError{Field: "currency", Message: "must be a 3-letter code"})
	}

	if req.TaxPercent < 0 || req.TaxPercent > 100 {
		errs = append(errs, fieldError{Field: "tax_percent", Message: "must be between 0 and 100"})
	}
	if req.ServicePercent < 0 || req.ServicePercent > 100 {
		errs = append(errs, fieldError{Field: "service_percent", Message: "must be between 0 and 100"})
	}

	if req.UserType == "" {
		req.UserType = "payer"
	} else if req.UserType != "payer" && req.UserType != "sharer" {
		errs = append(errs, fieldError{Field: "user_type", Message: "must be payer or sharer"})
	}

	if req.Items == nil {
		errs = append(errs, fieldError{Field: "items", Message: "is required"})
	}
	for i, item := range req.Items {
		prefix := fmt.Sprintf("items.%d.", i)
		if strings.TrimSpace(item.Name) == "" {
			errs = append(errs, fieldError{Field: prefix + "name", Message: "is required"})
		}
		if item.Qty < 1 {
			errs = append(errs, fieldError{Field: prefix + "qty", Message: "must be a positive integer"})
		}
		if item.UnitPrice < 0 {
			errs = append(errs, fieldError{Field: prefix + "unit_price", Message: "must be non-negative"})
		}
	}

	return errs
}

// registerRequest is the account creation body.
type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

func (req *registerRequest) validate() []fieldError {
	var errs []fieldError
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		errs = append(errs, fieldError{Field: "email", Message: "must be a valid email address"})
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		errs = append(errs, fieldError{Field: "display_name", Message: "is required"})
	}
	if req.Password == "" {
		errs = append(errs, fieldError{Field: "password", Message: "is required"})
	}
	return errs
}

// loginRequest is the login body.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *loginRequest) validate() []fieldError {
	var errs []fieldError
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		errs = append(errs, fieldError{Field: "email", Message: "is required"})
	}
	if req.Password == "" {
		errs = append(errs, fieldError{Field: "password", Message: "is required"})
	}
	return errs
}

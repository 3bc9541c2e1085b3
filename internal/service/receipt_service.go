// Package service implements the business layer between the HTTP boundary
// and storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/patcharin/splitbill/internal/models"
	"github.com/patcharin/splitbill/internal/scanning"
	"github.com/patcharin/splitbill/internal/storage"
)

// ErrAccessDenied is returned when the caller is neither the receipt's
// creator nor a participant with an existing selection.
var ErrAccessDenied = errors.New("access denied")

// ReceiptService handles receipt parsing, creation, and retrieval.
type ReceiptService struct {
	store   storage.Store
	scanner scanning.Scanner
}

// NewReceiptService creates a ReceiptService with the given storage backend
// and parsing gateway.
func NewReceiptService(store storage.Store, scanner scanning.Scanner) *ReceiptService {
	return &ReceiptService{store: store, scanner: scanner}
}

// NewItem is one line item of a receipt being created.
type NewItem struct {
	Name      string
	NameEN    string
	Qty       int
	UnitPrice float64
}

// NewReceipt carries everything needed to create a receipt, whether it came
// from the parser or was entered by hand.
type NewReceipt struct {
	MerchantName     string
	MerchantNameEN   string
	OriginalLanguage string
	Currency         string
	TaxPercent       float64
	ServicePercent   float64
	Rounding         float64
	// Subtotal and Total are optional; nil means derive from the items and
	// charge rates.
	Subtotal      *float64
	Total         *float64
	RawJSON       string
	ParserVersion string
	StorageKey    string
	IssuedAt      string
	UserType      models.UserType
	Items         []NewItem
}

// ReceiptView is a receipt together with the caller's relationship to it,
// as served by the fetch endpoint.
type ReceiptView struct {
	Receipt   *models.Receipt
	Selection *models.UserSelection // nil when the caller has none
	IsCreator bool
	IsPayer   bool
}

// Parse runs the uploaded image through the vision gateway.
// Returns scanning.ErrNotReceipt when the image is not a bill.
func (s *ReceiptService) Parse(imageData []byte, contentType string) (*scanning.ParsedReceipt, error) {
	parsed, err := s.scanner.ParseReceipt(imageData, contentType)
	if err != nil {
		return nil, err
	}
	slog.Debug("Receipt parsed",
		"merchant", parsed.MerchantName,
		"items", len(parsed.Items),
		"subtotal", parsed.Subtotal,
		"total", parsed.Total,
	)
	return parsed, nil
}

// ParserVersion reports the active parser identifier.
func (s *ReceiptService) ParserVersion() string {
	return s.scanner.Version()
}

// Create persists a receipt and its items atomically for the given user.
// When subtotal or total are not supplied they are derived:
//
//	subtotal = Σ qty*unit_price
//	total    = subtotal + tax + service + rounding
func (s *ReceiptService) Create(ctx context.Context, userID string, in NewReceipt) (*models.Receipt, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	subtotal := 0.0
	if in.Subtotal != nil {
		subtotal = *in.Subtotal
	} else {
		for _, item := range in.Items {
			subtotal += float64(item.Qty) * item.UnitPrice
		}
	}

	total := 0.0
	if in.Total != nil {
		total = *in.Total
	} else {
		total = subtotal +
			subtotal*in.TaxPercent/100 +
			subtotal*in.ServicePercent/100 +
			in.Rounding
	}

	userType := in.UserType
	if userType == "" {
		userType = models.UserTypePayer
	}

	items := make([]models.ReceiptItem, len(in.Items))
	for i, item := range in.Items {
		items[i] = models.ReceiptItem{
			Position:  i + 1,
			Name:      item.Name,
			NameEN:    item.NameEN,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
		}
	}

	receipt := &models.Receipt{
		UserID:           userID,
		MerchantName:     in.MerchantName,
		MerchantNameEN:   in.MerchantNameEN,
		OriginalLanguage: in.OriginalLanguage,
		Currency:         in.Currency,
		TaxPercent:       in.TaxPercent,
		ServicePercent:   in.ServicePercent,
		Rounding:         in.Rounding,
		Subtotal:         subtotal,
		Total:            total,
		RawJSON:          in.RawJSON,
		ParserVersion:    in.ParserVersion,
		StorageKey:       in.StorageKey,
		IssuedAt:         in.IssuedAt,
		UserType:         userType,
		Items:            items,
	}

	if err := s.store.CreateReceipt(ctx, receipt); err != nil {
		slog.Error("CreateReceipt failed", "user_id", userID, "error", err)
		return nil, err
	}

	slog.Info("Receipt created",
		"receipt_id", receipt.ID,
		"user_id", userID,
		"items", len(receipt.Items),
		"total", receipt.Total,
	)
	return receipt, nil
}

// Get retrieves a receipt for the given caller, enforcing access rules: the
// creator can always read it; anyone else only after they have saved a
// selection for it (i.e. they were invited via the shared link and joined).
func (s *ReceiptService) Get(ctx context.Context, userID, receiptID string) (*ReceiptView, error) {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	isCreator := receipt.UserID == userID
	isPayer := isCreator && receipt.UserType == models.UserTypePayer

	selection, err := s.store.GetSelection(ctx, userID, receiptID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	if !isCreator && selection == nil {
		return nil, fmt.Errorf("receipt %s for user %s: %w", receiptID, userID, ErrAccessDenied)
	}

	return &ReceiptView{
		Receipt:   receipt,
		Selection: selection,
		IsCreator: isCreator,
		IsPayer:   isPayer,
	}, nil
}

// List returns a page of the caller's receipts, newest first, with the
// caller's total receipt count.
func (s *ReceiptService) List(ctx context.Context, userID string, limit, offset int) ([]models.Receipt, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListReceipts(ctx, userID, limit, offset)
}

package service

import (
	"context"
	"log/slog"

	"github.com/patcharin/splitbill/internal/allocation"
	"github.com/patcharin/splitbill/internal/models"
	"github.com/patcharin/splitbill/internal/storage"
)

// SelectionService saves participants' item selections. Every save runs the
// allocation engine and persists its output, so stored amounts can never
// drift from what the engine would report for the same inputs.
type SelectionService struct {
	store storage.Store
}

// NewSelectionService creates a SelectionService with the given storage backend.
func NewSelectionService(store storage.Store) *SelectionService {
	return &SelectionService{store: store}
}

// Save computes the allocation for the user's selection on a receipt and
// upserts the result. Create and update are the same operation: the store is
// keyed on (user, receipt), so saving twice updates the single existing row.
//
// Selected IDs that match no receipt item are kept in the stored selection
// but contribute nothing to the amounts; this tolerates stale client state
// without corrupting totals.
func (s *SelectionService) Save(ctx context.Context, userID, receiptID string, selectedItems []string, itemShares map[string]int) (*models.UserSelection, error) {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	items := make([]allocation.Item, len(receipt.Items))
	for i, item := range receipt.Items {
		items[i] = allocation.Item{
			ID:        item.ID,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
		}
	}

	alloc := allocation.Compute(items, allocation.ChargeRates{
		Subtotal:       receipt.Subtotal,
		TaxPercent:     receipt.TaxPercent,
		ServicePercent: receipt.ServicePercent,
		Rounding:       receipt.Rounding,
		Total:          receipt.Total,
	}, selectedItems, itemShares)

	if selectedItems == nil {
		selectedItems = []string{}
	}
	if itemShares == nil {
		itemShares = map[string]int{}
	}

	sel := &models.UserSelection{
		UserID:          userID,
		ReceiptID:       receiptID,
		SelectedItems:   selectedItems,
		ItemShares:      itemShares,
		CalculatedTotal: alloc.FinalTotal,
		TaxAmount:       alloc.TaxAmount,
		ServiceAmount:   alloc.ServiceAmount,
		RoundingAmount:  alloc.RoundingAmount,
	}
	if err := s.store.UpsertSelection(ctx, sel); err != nil {
		slog.Error("UpsertSelection failed", "user_id", userID, "receipt_id", receiptID, "error", err)
		return nil, err
	}

	slog.Info("Selection saved",
		"user_id", userID,
		"receipt_id", receiptID,
		"selected_items", len(sel.SelectedItems),
		"calculated_total", sel.CalculatedTotal,
		"proportion", alloc.Proportion,
	)
	return sel, nil
}

// Get retrieves the user's selection for a receipt.
// Returns storage.ErrNotFound when none has been saved.
func (s *SelectionService) Get(ctx context.Context, userID, receiptID string) (*models.UserSelection, error) {
	return s.store.GetSelection(ctx, userID, receiptID)
}

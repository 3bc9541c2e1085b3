package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/patcharin/splitbill/internal/models"
	"github.com/patcharin/splitbill/internal/storage"
)

// UpsertSelection writes the user's selection for a receipt, replacing any
// existing row for the same (user, receipt) pair. The UNIQUE constraint plus
// ON CONFLICT keeps concurrent saves last-write-wins without ever producing
// a duplicate pair.
func (s *SQLiteStore) UpsertSelection(ctx context.Context, sel *models.UserSelection) error {
	now := time.Now().Unix()
	if sel.ID == "" {
		sel.ID = uuid.New().String()
	}
	if sel.CreatedAt == 0 {
		sel.CreatedAt = now
	}
	sel.UpdatedAt = now

	selectedItems, err := json.Marshal(sel.SelectedItems)
	if err != nil {
		return fmt.Errorf("failed to encode selected items: %w", err)
	}
	itemShares, err := json.Marshal(sel.ItemShares)
	if err != nil {
		return fmt.Errorf("failed to encode item shares: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_selections (
			id, user_id, receipt_id, selected_items, item_shares,
			calculated_total, tax_amount, service_amount, rounding_amount,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, receipt_id) DO UPDATE SET
			selected_items = excluded.selected_items,
			item_shares = excluded.item_shares,
			calculated_total = excluded.calculated_total,
			tax_amount = excluded.tax_amount,
			service_amount = excluded.service_amount,
			rounding_amount = excluded.rounding_amount,
			updated_at = excluded.updated_at`,
		sel.ID, sel.UserID, sel.ReceiptID, string(selectedItems), string(itemShares),
		sel.CalculatedTotal, sel.TaxAmount, sel.ServiceAmount, sel.RoundingAmount,
		sel.CreatedAt, sel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert selection: %w", err)
	}

	// On conflict the stored row keeps its original id and created_at;
	// reload so the caller returns what was actually persisted.
	stored, err := s.GetSelection(ctx, sel.UserID, sel.ReceiptID)
	if err != nil {
		return err
	}
	*sel = *stored

	return nil
}

// GetSelection retrieves the user's selection for a receipt.
func (s *SQLiteStore) GetSelection(ctx context.Context, userID, receiptID string) (*models.UserSelection, error) {
	sel := &models.UserSelection{}
	var selectedItems, itemShares string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, receipt_id, selected_items, item_shares,
			calculated_total, tax_amount, service_amount, rounding_amount,
			created_at, updated_at
		FROM user_selections WHERE user_id = ? AND receipt_id = ?`,
		userID, receiptID,
	).Scan(
		&sel.ID, &sel.UserID, &sel.ReceiptID, &selectedItems, &itemShares,
		&sel.CalculatedTotal, &sel.TaxAmount, &sel.ServiceAmount, &sel.RoundingAmount,
		&sel.CreatedAt, &sel.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("selection for user %s on receipt %s: %w", userID, receiptID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}

	if err := json.Unmarshal([]byte(selectedItems), &sel.SelectedItems); err != nil {
		return nil, fmt.Errorf("failed to decode selected items: %w", err)
	}
	if err := json.Unmarshal([]byte(itemShares), &sel.ItemShares); err != nil {
		return nil, fmt.Errorf("failed to decode item shares: %w", err)
	}

	return sel, nil
}

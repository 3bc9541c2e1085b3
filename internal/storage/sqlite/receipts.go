package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/patcharin/splitbill/internal/models"
	"github.com/patcharin/splitbill/internal/storage"
)

// CreateReceipt persists a receipt and its items atomically. Item positions
// are assigned 1..n in slice order when unset.
func (s *SQLiteStore) CreateReceipt(ctx context.Context, receipt *models.Receipt) error {
	now := time.Now().Unix()
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if receipt.CreatedAt == 0 {
		receipt.CreatedAt = now
	}
	receipt.UpdatedAt = receipt.CreatedAt

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts (
			id, user_id, merchant_name, merchant_name_en, original_language,
			currency, tax_percent, service_percent, rounding, subtotal, total,
			raw_json, parser_version, storage_key, user_type, issued_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID, receipt.UserID, receipt.MerchantName, receipt.MerchantNameEN,
		receipt.OriginalLanguage, receipt.Currency, receipt.TaxPercent,
		receipt.ServicePercent, receipt.Rounding, receipt.Subtotal, receipt.Total,
		receipt.RawJSON, receipt.ParserVersion, receipt.StorageKey,
		string(receipt.UserType), receipt.IssuedAt, receipt.CreatedAt, receipt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}

	for i := range receipt.Items {
		item := &receipt.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.ReceiptID = receipt.ID
		if item.Position == 0 {
			item.Position = i + 1
		}
		if item.CreatedAt == 0 {
			item.CreatedAt = now
		}
		item.UpdatedAt = item.CreatedAt

		_, err = tx.ExecContext(ctx, `
			INSERT INTO receipt_items (
				id, receipt_id, position, name, name_en, qty, unit_price,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.ReceiptID, item.Position, item.Name, item.NameEN,
			item.Qty, item.UnitPrice, item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert receipt item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetReceipt retrieves a receipt by ID, including its items ordered by position.
func (s *SQLiteStore) GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error) {
	receipt := &models.Receipt{}
	var userType string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, merchant_name, merchant_name_en, original_language,
			currency, tax_percent, service_percent, rounding, subtotal, total,
			raw_json, parser_version, storage_key, user_type, issued_at,
			created_at, updated_at
		FROM receipts WHERE id = ?`, receiptID,
	).Scan(
		&receipt.ID, &receipt.UserID, &receipt.MerchantName, &receipt.MerchantNameEN,
		&receipt.OriginalLanguage, &receipt.Currency, &receipt.TaxPercent,
		&receipt.ServicePercent, &receipt.Rounding, &receipt.Subtotal, &receipt.Total,
		&receipt.RawJSON, &receipt.ParserVersion, &receipt.StorageKey,
		&userType, &receipt.IssuedAt, &receipt.CreatedAt, &receipt.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("receipt %s: %w", receiptID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	receipt.UserType = models.UserType(userType)

	items, err := s.receiptItems(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	receipt.Items = items

	return receipt, nil
}

func (s *SQLiteStore) receiptItems(ctx context.Context, receiptID string) ([]models.ReceiptItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, receipt_id, position, name, name_en, qty, unit_price,
			created_at, updated_at
		FROM receipt_items WHERE receipt_id = ? ORDER BY position`, receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt items: %w", err)
	}
	defer rows.Close()

	var items []models.ReceiptItem
	for rows.Next() {
		var item models.ReceiptItem
		if err := rows.Scan(
			&item.ID, &item.ReceiptID, &item.Position, &item.Name, &item.NameEN,
			&item.Qty, &item.UnitPrice, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan receipt item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt items: %w", err)
	}
	return items, nil
}

// ListReceipts returns a page of the user's receipts, newest first, with
// their items, plus the user's total receipt count.
func (s *SQLiteStore) ListReceipts(ctx context.Context, userID string, limit, offset int) ([]models.Receipt, int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM receipts WHERE user_id = ?", userID,
	).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count receipts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, merchant_name, merchant_name_en, original_language,
			currency, tax_percent, service_percent, rounding, subtotal, total,
			raw_json, parser_version, storage_key, user_type, issued_at,
			created_at, updated_at
		FROM receipts WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`, userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		var userType string
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.MerchantName, &r.MerchantNameEN,
			&r.OriginalLanguage, &r.Currency, &r.TaxPercent, &r.ServicePercent,
			&r.Rounding, &r.Subtotal, &r.Total, &r.RawJSON, &r.ParserVersion,
			&r.StorageKey, &userType, &r.IssuedAt, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan receipt: %w", err)
		}
		r.UserType = models.UserType(userType)
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate receipts: %w", err)
	}

	for i := range receipts {
		items, err := s.receiptItems(ctx, receipts[i].ID)
		if err != nil {
			return nil, 0, err
		}
		receipts[i].Items = items
	}

	return receipts, count, nil
}

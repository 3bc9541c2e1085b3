// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/patcharin/splitbill/internal/models"
)

// ErrNotFound is returned when a requested record does not exist. Callers
// match it with errors.Is to distinguish missing data from storage failures.
var ErrNotFound = errors.New("not found")

// Store defines the interface for receipt and selection storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateReceipt persists a receipt together with all of its items in a
	// single transaction. Missing IDs and timestamps are populated on the
	// passed models. Nothing is written if any item insert fails.
	CreateReceipt(ctx context.Context, receipt *models.Receipt) error

	// GetReceipt retrieves a receipt by ID with its items ordered by
	// position. Returns ErrNotFound if no such receipt exists.
	GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error)

	// ListReceipts returns a page of the user's receipts, newest first,
	// along with the user's total receipt count for pagination.
	ListReceipts(ctx context.Context, userID string, limit, offset int) ([]models.Receipt, int, error)

	// UpsertSelection creates the user's selection for a receipt, or
	// replaces it if one already exists. The store guarantees at most one
	// selection per (user, receipt) pair regardless of request ordering.
	UpsertSelection(ctx context.Context, sel *models.UserSelection) error

	// GetSelection retrieves the user's selection for a receipt.
	// Returns ErrNotFound when the user has not saved one.
	GetSelection(ctx context.Context, userID, receiptID string) (*models.UserSelection, error)

	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email. Returns ErrNotFound if the
	// email is not registered.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}

package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS receipts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    merchant_name TEXT NOT NULL DEFAULT '',
    merchant_name_en TEXT NOT NULL DEFAULT '',
    original_language TEXT NOT NULL DEFAULT '',
    currency TEXT NOT NULL,
    tax_percent REAL NOT NULL,
    service_percent REAL NOT NULL,
    rounding REAL NOT NULL,
    subtotal REAL NOT NULL,
    total REAL NOT NULL,
    raw_json TEXT NOT NULL DEFAULT '',
    parser_version TEXT NOT NULL DEFAULT '',
    storage_key TEXT NOT NULL DEFAULT '',
    user_type TEXT NOT NULL,
    issued_at TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS receipt_items (
    id TEXT PRIMARY KEY,
    receipt_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    name_en TEXT NOT NULL DEFAULT '',
    qty INTEGER NOT NULL,
    unit_price REAL NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (receipt_id, position),
    FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS user_selections (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    receipt_id TEXT NOT NULL,
    selected_items TEXT NOT NULL,
    item_shares TEXT NOT NULL,
    calculated_total REAL NOT NULL,
    tax_amount REAL NOT NULL,
    service_amount REAL NOT NULL,
    rounding_amount REAL NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (user_id, receipt_id),
    FOREIGN KEY (user_id) REFERENCES users(id),
    FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_receipts_user_id ON receipts(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_receipt_items_receipt_id ON receipt_items(receipt_id);
CREATE INDEX IF NOT EXISTS idx_user_selections_receipt_id ON user_selections(receipt_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

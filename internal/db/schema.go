package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    first_name    TEXT NOT NULL,
    last_name     TEXT NOT NULL,
    email         TEXT NOT NULL,
    phone         TEXT,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    photo         BLOB,
    photo_mime    TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id                TEXT PRIMARY KEY,
    kind              TEXT NOT NULL CHECK (kind IN ('lost', 'found')),
    name              TEXT NOT NULL,
    category          TEXT NOT NULL CHECK (category <> ''),
    subcategory       TEXT NOT NULL CHECK (subcategory <> ''),
    location          TEXT,
    event_date        DATETIME NOT NULL,
    brand             TEXT,
    model             TEXT,
    color             TEXT,
    description       TEXT,
    reporter_id       INTEGER NOT NULL REFERENCES users(id),
    security_question TEXT,
    security_answer   TEXT,
    photo             BLOB,
    photo_mime        TEXT,
    status            TEXT NOT NULL DEFAULT 'Registered' CHECK (status IN (
                          'Registered',
                          'Authentication In Progress',
                          'Authentication Verified',
                          'Return In Progress',
                          'Object Returned')),
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at        DATETIME
);

CREATE INDEX IF NOT EXISTS idx_items_candidates
    ON items(kind, category, subcategory) WHERE deleted_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_items_reporter
    ON items(reporter_id) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

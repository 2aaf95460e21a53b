package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const upsertContactSQL = `
	INSERT INTO contacts (kind, id, name, markname, code, category, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(kind, id) DO UPDATE SET
		name = CASE WHEN excluded.name != '' THEN excluded.name ELSE contacts.name END,
		markname = excluded.markname,
		code = excluded.code,
		category = excluded.category,
		updated_at = excluded.updated_at`

// UpsertContact inserts or updates one contact. An empty name keeps the
// stored one.
func (db *DB) UpsertContact(c *Contact) error {
	_, err := db.Exec(upsertContactSQL, c.Kind, c.ID, c.Name, c.Markname, c.Code, c.Category, time.Now().UnixMilli())
	return err
}

// ReplaceContacts makes contacts the complete cached list for kind, in a
// single transaction.
func (db *DB) ReplaceContacts(kind string, contacts []Contact) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM contacts WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("clear %s contacts: %w", kind, err)
	}
	now := time.Now().UnixMilli()
	for _, c := range contacts {
		if c.Kind != kind {
			return fmt.Errorf("contact %d has kind %q in a %s snapshot", c.ID, c.Kind, kind)
		}
		if _, err := tx.Exec(upsertContactSQL, c.Kind, c.ID, c.Name, c.Markname, c.Code, c.Category, now); err != nil {
			return fmt.Errorf("upsert contact %s/%d: %w", c.Kind, c.ID, err)
		}
	}
	return tx.Commit()
}

// GetContact returns a cached contact, or nil when unknown.
func (db *DB) GetContact(kind string, id int64) (*Contact, error) {
	var c Contact
	err := db.QueryRow(`SELECT kind, id, name, markname, code, category FROM contacts WHERE kind = ? AND id = ?`, kind, id).
		Scan(&c.Kind, &c.ID, &c.Name, &c.Markname, &c.Code, &c.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContacts returns the cached contacts of a kind ordered by id.
func (db *DB) ListContacts(kind string) ([]Contact, error) {
	rows, err := db.Query(`SELECT kind, id, name, markname, code, category FROM contacts WHERE kind = ? ORDER BY id`, kind)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.Kind, &c.ID, &c.Name, &c.Markname, &c.Code, &c.Category); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// ContactCount returns the number of cached contacts of every kind.
func (db *DB) ContactCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&count)
	return count, err
}

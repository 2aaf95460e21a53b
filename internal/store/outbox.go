package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicate is returned when a client message id is queued twice.
var ErrDuplicate = errors.New("store: duplicate client message id")

// QueueOutbox adds a text to the send outbox.
func (db *DB) QueueOutbox(clientMsgID, kind string, peer int64, body string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (client_msg_id, kind, peer, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'queued', ?, ?)`,
		clientMsgID, kind, peer, body, now, now)
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w %q", ErrDuplicate, clientMsgID)
	}
	return err
}

// MarkOutboxSending moves a queued entry to 'sending'.
func (db *DB) MarkOutboxSending(clientMsgID string) error {
	_, err := db.Exec(`UPDATE outbox SET status = 'sending', updated_at = ? WHERE client_msg_id = ?`,
		time.Now().UnixMilli(), clientMsgID)
	return err
}

// MarkOutboxSent records the message id the send call used.
func (db *DB) MarkOutboxSent(clientMsgID string, msgID int64) error {
	_, err := db.Exec(`UPDATE outbox SET status = 'sent', msg_id = ?, updated_at = ? WHERE client_msg_id = ?`,
		msgID, time.Now().UnixMilli(), clientMsgID)
	return err
}

// MarkOutboxFailed records the failure. msgID is kept when the send call
// got far enough to consume one.
func (db *DB) MarkOutboxFailed(clientMsgID string, msgID int64, errMsg string) error {
	_, err := db.Exec(`UPDATE outbox SET status = 'failed', msg_id = ?, error_message = ?, updated_at = ? WHERE client_msg_id = ?`,
		msgID, errMsg, time.Now().UnixMilli(), clientMsgID)
	return err
}

// FailInterruptedOutbox fails entries left in 'sending' by a previous
// process. They may or may not have reached the server, so they are not
// retried.
func (db *DB) FailInterruptedOutbox() (int64, error) {
	res, err := db.Exec(`UPDATE outbox SET status = 'failed', error_message = 'interrupted', updated_at = ? WHERE status = 'sending'`,
		time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PendingOutbox returns queued entries, oldest first.
func (db *DB) PendingOutbox() ([]OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT id, client_msg_id, kind, peer, body, status, error_message, msg_id
		FROM outbox WHERE status = 'queued' ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.Kind, &e.Peer, &e.Body, &e.Status, &e.ErrorMessage, &e.MsgID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetOutbox returns an entry by client message id, or nil.
func (db *DB) GetOutbox(clientMsgID string) (*OutboxEntry, error) {
	var e OutboxEntry
	err := db.QueryRow(`
		SELECT id, client_msg_id, kind, peer, body, status, error_message, msg_id
		FROM outbox WHERE client_msg_id = ?`, clientMsgID).
		Scan(&e.ID, &e.ClientMsgID, &e.Kind, &e.Peer, &e.Body, &e.Status, &e.ErrorMessage, &e.MsgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

package store

import "time"

// UpsertMessage stores m, keyed on (kind, peer, msg_id). It reports whether
// a new row was created; an existing row only has its body, status and a
// non-empty sender name refreshed.
func (db *DB) UpsertMessage(m *Message) (bool, error) {
	res, err := db.Exec(`
		INSERT INTO messages (kind, peer, msg_id, sender, sender_name, body, from_me, status, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, peer, msg_id) DO NOTHING`,
		m.Kind, m.Peer, m.MsgID, m.Sender, m.SenderName, m.Body, m.FromMe, m.Status, m.Timestamp, time.Now().UnixMilli())
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}
	_, err = db.Exec(`
		UPDATE messages SET
			sender_name = CASE WHEN ? != '' THEN ? ELSE sender_name END,
			body = ?,
			status = ?
		WHERE kind = ? AND peer = ? AND msg_id = ?`,
		m.SenderName, m.SenderName, m.Body, m.Status, m.Kind, m.Peer, m.MsgID)
	return false, err
}

// SetMessageStatus updates the status of a stored message.
func (db *DB) SetMessageStatus(kind string, peer int64, msgID, status string) error {
	_, err := db.Exec(`UPDATE messages SET status = ? WHERE kind = ? AND peer = ? AND msg_id = ?`,
		status, kind, peer, msgID)
	return err
}

// ListMessages returns a conversation's messages newest first, paging by
// timestamp. beforeTs <= 0 starts from now.
func (db *DB) ListMessages(kind string, peer int64, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT id, kind, peer, msg_id, sender, sender_name, body, from_me, status, timestamp
		FROM messages
		WHERE kind = ? AND peer = ? AND timestamp < ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, kind, peer, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Kind, &m.Peer, &m.MsgID, &m.Sender, &m.SenderName, &m.Body, &m.FromMe, &m.Status, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the total number of stored messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

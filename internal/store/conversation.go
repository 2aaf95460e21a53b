package store

import (
	"database/sql"
	"errors"
	"time"
)

const displayNameExpr = `COALESCE(NULLIF(c.name,''), NULLIF(ct.markname,''), NULLIF(ct.name,''), CAST(c.peer AS TEXT))`

// TouchConversation records activity from m on its conversation, creating
// the row if needed. The preview only moves forward in time. addUnread is
// added to the unread counter.
func (db *DB) TouchConversation(m *Message, addUnread int) error {
	_, err := db.Exec(`
		INSERT INTO conversations (kind, peer, unread_count, last_message_at, last_message_preview, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, peer) DO UPDATE SET
			unread_count = conversations.unread_count + excluded.unread_count,
			last_message_at = MAX(conversations.last_message_at, excluded.last_message_at),
			last_message_preview = CASE
				WHEN excluded.last_message_at >= conversations.last_message_at THEN excluded.last_message_preview
				ELSE conversations.last_message_preview END,
			updated_at = excluded.updated_at`,
		m.Kind, m.Peer, addUnread, m.Timestamp, truncate(m.Body, 100), time.Now().UnixMilli())
	return err
}

// RenameConversation sets an explicit conversation name, overriding the
// contact-derived one.
func (db *DB) RenameConversation(kind string, peer int64, name string) error {
	_, err := db.Exec(`
		INSERT INTO conversations (kind, peer, name, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, peer) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		kind, peer, name, time.Now().UnixMilli())
	return err
}

// MarkConversationRead resets the unread counter.
func (db *DB) MarkConversationRead(kind string, peer int64) error {
	_, err := db.Exec(`UPDATE conversations SET unread_count = 0 WHERE kind = ? AND peer = ?`, kind, peer)
	return err
}

// ListConversations returns conversations with the most recent activity
// first. Names fall back from the explicit name to the cached contact's
// markname, its name, and finally the peer id.
func (db *DB) ListConversations(limit, offset int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT c.kind, c.peer, `+displayNameExpr+`,
			c.unread_count, c.last_message_at, c.last_message_preview
		FROM conversations c
		LEFT JOIN contacts ct ON ct.kind = c.kind AND ct.id = c.peer
		ORDER BY c.last_message_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.Kind, &c.Peer, &c.Name, &c.UnreadCount, &c.LastMessageAt, &c.LastMessagePreview); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation returns one conversation, or nil when it does not exist.
func (db *DB) GetConversation(kind string, peer int64) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT c.kind, c.peer, `+displayNameExpr+`,
			c.unread_count, c.last_message_at, c.last_message_preview
		FROM conversations c
		LEFT JOIN contacts ct ON ct.kind = c.kind AND ct.id = c.peer
		WHERE c.kind = ? AND c.peer = ?`, kind, peer).
		Scan(&c.Kind, &c.Peer, &c.Name, &c.UnreadCount, &c.LastMessageAt, &c.LastMessagePreview)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes])
}

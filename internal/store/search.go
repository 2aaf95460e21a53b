package store

import "strings"

// SearchMessages finds messages whose body contains query, newest first.
// An empty kind searches every conversation; peer is only applied with a
// kind.
func (db *DB) SearchMessages(query, kind string, peer int64, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `
		SELECT id, kind, peer, msg_id, sender, sender_name, body, from_me, status, timestamp
		FROM messages
		WHERE body LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(query) + "%"}
	if kind != "" {
		q += " AND kind = ? AND peer = ?"
		args = append(args, kind, peer)
	}
	q += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Kind, &m.Peer, &m.MsgID, &m.Sender, &m.SenderName, &m.Body, &m.FromMe, &m.Status, &m.Timestamp); err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Message: m, Snippet: snippet(m.Body, query, 16)})
	}
	return results, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// snippet marks the first case-insensitive match of query in body with
// << >> and keeps up to context runes on each side.
func snippet(body, query string, context int) string {
	runes := []rune(body)
	lower := []rune(strings.ToLower(body))
	q := []rune(strings.ToLower(query))
	at := -1
	if len(lower) == len(runes) {
		for i := 0; i+len(q) <= len(lower); i++ {
			if string(lower[i:i+len(q)]) == string(q) {
				at = i
				break
			}
		}
	}
	if at < 0 || len(q) == 0 {
		return truncate(body, 2*context)
	}
	start, end := max(at-context, 0), min(at+len(q)+context, len(runes))
	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(runes[start:at]))
	b.WriteString("<<")
	b.WriteString(string(runes[at : at+len(q)]))
	b.WriteString(">>")
	b.WriteString(string(runes[at+len(q) : end]))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String()
}

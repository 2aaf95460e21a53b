package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/store"
	"go.uber.org/zap"
)

// ContactSource fetches a complete contact list of one kind from the
// server.
type ContactSource interface {
	Contacts(ctx context.Context, kind string) ([]store.Contact, error)
}

// RefreshKinds are the contact lists mirrored into the store.
var RefreshKinds = []string{store.KindFriend, store.KindGroup, store.KindDiscuss}

// Refresher mirrors the server's contact lists into the store and keeps a
// per-kind checkpoint of the last successful refresh.
type Refresher struct {
	db     *store.DB
	bus    *bus.Bus
	source ContactSource
	logger *zap.Logger
	now    func() time.Time
}

// NewRefresher creates a refresher. logger may be nil.
func NewRefresher(db *store.DB, b *bus.Bus, source ContactSource, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{db: db, bus: b, source: source, logger: logger, now: time.Now}
}

// Refresh fetches every kind in RefreshKinds. A failing kind does not stop
// the others; the first error is returned.
func (r *Refresher) Refresh(ctx context.Context) error {
	var first error
	for _, kind := range RefreshKinds {
		if err := r.RefreshKind(ctx, kind); err != nil {
			r.logger.Warn("contact refresh failed", zap.String("kind", kind), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// RefreshKind replaces the cached contacts of one kind and publishes the
// snapshot as qq.contacts.
func (r *Refresher) RefreshKind(ctx context.Context, kind string) error {
	contacts, err := r.source.Contacts(ctx, kind)
	if err != nil {
		return fmt.Errorf("fetch %s contacts: %w", kind, err)
	}
	if err := r.db.ReplaceContacts(kind, contacts); err != nil {
		return fmt.Errorf("store %s contacts: %w", kind, err)
	}
	if err := r.UpdateCheckpoint(checkpointKey(kind), strconv.FormatInt(r.now().UnixMilli(), 10)); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	r.logger.Info("contacts refreshed", zap.String("kind", kind), zap.Int("count", len(contacts)))
	r.bus.Emit(bus.KindContacts, &store.ContactSnapshot{Kind: kind, Contacts: contacts})
	return nil
}

// LastRefresh returns when kind was last refreshed, or the zero time.
func (r *Refresher) LastRefresh(kind string) (time.Time, error) {
	v, err := r.GetCheckpoint(checkpointKey(kind))
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("checkpoint %q: %w", v, err)
	}
	return time.UnixMilli(ms), nil
}

// UpdateCheckpoint updates a sync checkpoint value.
func (r *Refresher) UpdateCheckpoint(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, r.now().UnixMilli())
	return err
}

// GetCheckpoint retrieves a sync checkpoint value.
func (r *Refresher) GetCheckpoint(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

func checkpointKey(kind string) string {
	return "contacts." + kind
}

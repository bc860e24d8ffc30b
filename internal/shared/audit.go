package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog is one row of audit_logs. ActorID defaults to the acting user.
type AuditLog struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends to audit_logs. Entries are never updated or deleted.
type AuditLogger struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool, now: time.Now}
}

// Record persists the entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	entry, err := l.complete(ctx, entry)
	if err != nil {
		return err
	}
	meta := entry.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, metaJSON, entry.At)
	return err
}

func (l *AuditLogger) complete(ctx context.Context, entry AuditLog) (AuditLog, error) {
	if entry.ActorID == "" {
		actor, err := ActingUser(ctx)
		if err != nil {
			return entry, err
		}
		entry.ActorID = actor
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return entry, errors.New("audit log requires action, entity and entity id")
	}
	if entry.At.IsZero() {
		entry.At = l.now().UTC()
	}
	return entry, nil
}

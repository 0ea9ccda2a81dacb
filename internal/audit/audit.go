package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
)

// Entry is one row of the audit trail.
type Entry struct {
	UserID   int64
	Action   string
	Entity   string
	EntityID int64
	Detail   any
}

// Recorder persists audit entries. Recording is best effort: a failed
// write must never abort the business operation that produced it, so
// Record returns nothing and implementations log failures instead.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type DBRecorder struct {
	db  *sql.DB
	log *slog.Logger
}

func NewDBRecorder(db *sql.DB, log *slog.Logger) *DBRecorder {
	return &DBRecorder{db: db, log: log}
}

func (r *DBRecorder) Record(ctx context.Context, e Entry) {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		r.log.Warn("audit detail marshal failed",
			slog.String("action", e.Action), slog.Any("err", err))
		detail = []byte("{}")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_log (user_id, action, entity, entity_id, detail)
		VALUES ($1, $2, $3, $4, $5::jsonb)`,
		nullableID(e.UserID), e.Action, e.Entity, nullableID(e.EntityID), string(detail))
	if err != nil {
		r.log.Warn("audit write failed",
			slog.String("action", e.Action),
			slog.String("entity", e.Entity),
			slog.Int64("entity_id", e.EntityID),
			slog.Any("err", err))
	}
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// Nop discards every entry. Used when no audit table is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

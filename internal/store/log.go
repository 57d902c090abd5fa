package store

import (
	"context"
	"fmt"

	"github.com/adminpanel/apiserver/internal/db"
	"github.com/adminpanel/apiserver/types"
)

// LogRepository handles persistence for the append-only audit log.
type LogRepository struct {
	db *db.DB
}

func NewLogRepository(db *db.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Append(ctx context.Context, entry types.LogEntry) (types.LogEntry, error) {
	const query = `
		INSERT INTO logs (admin, target_user, action, details, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		r.db.Rebind(query),
		entry.Admin,
		entry.TargetUser,
		entry.Action,
		entry.Details,
		entry.Time,
	).Scan(&entry.ID); err != nil {
		return types.LogEntry{}, fmt.Errorf("inserting log entry: %w", err)
	}
	return entry, nil
}

// ListRecent returns every entry, newest first.
func (r *LogRepository) ListRecent(ctx context.Context) ([]types.LogEntry, error) {
	const query = `
		SELECT id, admin, target_user, action, details, occurred_at
		FROM logs
		ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing log entries: %w", err)
	}
	defer rows.Close()

	entries := make([]types.LogEntry, 0)
	for rows.Next() {
		var entry types.LogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Admin,
			&entry.TargetUser,
			&entry.Action,
			&entry.Details,
			&entry.Time,
		); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating log entries: %w", err)
	}
	return entries, nil
}

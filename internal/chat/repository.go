package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"triage-intake-agent/internal/triage"
)

type postgresRepo struct {
	db *sql.DB
}

// NewRepository builds the Postgres-backed mirror store. Schema lives in
// migrations/.
func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) SaveSnapshot(ctx context.Context, userID string, snap triage.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO case_snapshots (user_id, session_id, schema_version, urgency_tier, severity_score, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, session_id) DO UPDATE SET
			schema_version = $3,
			urgency_tier = $4,
			severity_score = $5,
			snapshot = $6,
			updated_at = NOW()
	`
	_, err = r.db.ExecContext(ctx, query,
		userID, snap.SessionID, snap.SchemaVersion, snap.UrgencyTier, snap.SeverityScore, payload)
	return err
}

func (r *postgresRepo) AppendMessage(ctx context.Context, userID, sessionID string, m MessageLog) error {
	query := `
		INSERT INTO case_messages (user_id, session_id, role, content, urgency_tier, severity_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		userID, sessionID, m.Role, m.Content, m.Tier, m.SeverityScore, m.Timestamp)
	return err
}

func (r *postgresRepo) History(ctx context.Context, userID, sessionID string) ([]MessageLog, error) {
	query := `
		SELECT role, content, urgency_tier, severity_score, created_at
		FROM case_messages
		WHERE user_id = $1 AND session_id = $2
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageLog
	for rows.Next() {
		var m MessageLog
		if err := rows.Scan(&m.Role, &m.Content, &m.Tier, &m.SeverityScore, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

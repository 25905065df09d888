package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
)

type sessionsRepo struct {
	db  *sql.DB
	now func() time.Time
}

func (r *sessionsRepo) Get(ctx context.Context, id string) (domain.SessionState, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM session_states WHERE id = ? AND expires_at > ?`,
		id, toMillis(r.now()),
	).Scan(&data)
	if err != nil {
		return domain.SessionState{}, mapNotFound(err)
	}

	var rec domain.SessionState
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return domain.SessionState{}, fmt.Errorf("sqlite: decode session: %w", err)
	}
	return rec, nil
}

func (r *sessionsRepo) Put(ctx context.Context, rec domain.SessionState) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlite: encode session: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO session_states (id, data, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`,
		rec.ID, string(data),
		toMillis(rec.CreatedAt), toMillis(rec.UpdatedAt), toMillis(rec.ExpiresAt),
	)
	return err
}

func (r *sessionsRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_states WHERE id = ?`, id)
	return err
}

func (r *sessionsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_states WHERE expires_at < ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
)

type usersRepo struct {
	db *sql.DB
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT username, subject, password_hash FROM users WHERE username = ?`, username,
	).Scan(&u.Username, &u.Subject, &u.PasswordHash)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, subject, password_hash) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			subject = excluded.subject,
			password_hash = excluded.password_hash`,
		u.Username, u.Subject, u.PasswordHash,
	)
	return err
}

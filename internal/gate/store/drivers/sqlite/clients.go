package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
)

type clientsRepo struct {
	db  *sql.DB
	now func() time.Time
}

const clientColumns = `client_id, name, default_max_age, redirect_uris, subject_type, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (domain.Client, error) {
	var (
		c                    domain.Client
		maxAge               sql.NullInt64
		redirects, subject   string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&c.ClientID, &c.Name, &maxAge, &redirects, &subject, &createdAt, &updatedAt); err != nil {
		return domain.Client{}, err
	}
	c.DefaultMaxAge = mapNullInt(maxAge)
	c.RedirectURIs = strings.Fields(redirects)
	c.SubjectType = domain.SubjectType(subject)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, clientID string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE client_id = ?`, clientID)
	c, err := scanClient(row)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return c, nil
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY client_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertClient stores redirect URIs space-joined; registration validation
// rejects URIs containing whitespace.
func (r *clientsRepo) UpsertClient(ctx context.Context, c domain.Client) error {
	subject := c.SubjectType
	if subject == "" {
		subject = domain.SubjectTypePublic
	}
	now := toMillis(r.now())

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			name = excluded.name,
			default_max_age = excluded.default_max_age,
			redirect_uris = excluded.redirect_uris,
			subject_type = excluded.subject_type,
			updated_at = excluded.updated_at`,
		c.ClientID, c.Name, mapOptionalInt(c.DefaultMaxAge),
		strings.Join(c.RedirectURIs, " "), string(subject), now, now,
	)
	return err
}

func (r *clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE client_id = ?`, clientID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

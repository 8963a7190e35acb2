package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cleared-dev/bukubesar/internal/model"
)

const userColumns = `id, username, full_name, email, role, password_hash, active, created_at`

// CreateUser inserts u and sets its ID.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, full_name, email, role, password_hash, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.FullName, u.Email, string(u.Role), u.PasswordHash, boolInt(u.Active), u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user %s: %w", u.Username, mapErr(err))
	}
	u.ID, err = res.LastInsertId()
	return err
}

// UpdateUserChecked overwrites profile, role and active flag once check
// accepts the stored user and the current number of active admins. The read
// and the write share one write transaction, so concurrent callers see each
// other's changes. The password hash is changed only through SetPasswordHash.
func (s *Store) UpdateUserChecked(ctx context.Context, u model.User, check func(cur model.User, activeAdmins int) error) error {
	return s.Transaction(ctx, func(tx *sql.Tx) error {
		cur, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, u.ID))
		if err != nil {
			return fmt.Errorf("getting user %d: %w", u.ID, mapErr(err))
		}
		n, err := countActiveAdmins(ctx, tx)
		if err != nil {
			return err
		}
		if err := check(cur, n); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET full_name = ?, email = ?, role = ?, active = ? WHERE id = ?`,
			u.FullName, u.Email, string(u.Role), boolInt(u.Active), u.ID,
		)
		if err != nil {
			return fmt.Errorf("updating user %d: %w", u.ID, mapErr(err))
		}
		return affected(res)
	})
}

// SetPasswordHash replaces a user's password hash.
func (s *Store) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("setting password for user %d: %w", id, err)
	}
	return affected(res)
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return model.User{}, fmt.Errorf("getting user %d: %w", id, mapErr(err))
	}
	return u, nil
}

// GetUserByUsername returns a user by login name.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		return model.User{}, fmt.Errorf("getting user %s: %w", username, mapErr(err))
	}
	return u, nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// countActiveAdmins returns the number of active admin users.
func countActiveAdmins(ctx context.Context, q querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ? AND active = 1`, string(model.RoleAdmin)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return n, nil
}

func scanUser(sc scanner) (model.User, error) {
	var u model.User
	var role string
	if err := sc.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &role, &u.PasswordHash, &u.Active, &u.CreatedAt); err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	return u, nil
}

package store

import (
	"database/sql"
	"fmt"

	"fieldops/internal/identity"
	"fieldops/internal/task"
)

// CreateUser persists a new account, filling in the generated ID.
func (s *Store) CreateUser(u *identity.User) error {
	res, err := s.db.Exec(`
		INSERT INTO users (username, password_hash, salt, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.Salt, string(u.Role), u.IsActive, u.CreatedAt, nullString(u.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("store: insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: user id: %w", err)
	}
	u.ID = id
	return nil
}

// UserByID returns the user with the given ID, or (nil, nil) if absent.
func (s *Store) UserByID(id int64) (*identity.User, error) {
	return s.scanUser(s.db.QueryRow(userSelect+` WHERE id = ?`, id))
}

// UserByName returns the user with the given username, or (nil, nil).
func (s *Store) UserByName(username string) (*identity.User, error) {
	return s.scanUser(s.db.QueryRow(userSelect+` WHERE username = ?`, username))
}

// ListUsers returns accounts filtered by role, ordered by username. An
// empty role returns every non-dispatcher account.
func (s *Store) ListUsers(role task.Role) ([]identity.User, error) {
	query := userSelect
	var args []any
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, string(role))
	} else {
		query += ` WHERE role != ?`
		args = append(args, string(task.RoleDispatcher))
	}
	query += ` ORDER BY username`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	defer rows.Close()

	var out []identity.User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// DeleteUser removes an account.
func (s *Store) DeleteUser(id int64) error {
	res, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete user %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("store: user %d not found", id)
	}
	return nil
}

// UserExists reports whether an account with the given ID exists.
func (s *Store) UserExists(id int64) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check user %d: %w", id, err)
	}
	return true, nil
}

const userSelect = `
	SELECT id, username, password_hash, salt, role, is_active, created_at, updated_at
	FROM users`

func (s *Store) scanUser(row rowScanner) (*identity.User, error) {
	var u identity.User
	var role string
	var updatedAt sql.NullString

	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Salt, &role, &u.IsActive, &u.CreatedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan user: %w", err)
	}
	u.Role = task.Role(role)
	u.UpdatedAt = updatedAt.String
	return &u, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// DisplayLabel is the name shown for the user: the chosen display name when
// set, otherwise the local part of the email.
func (u User) DisplayLabel() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	user := User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, display_name, created_at) VALUES (?, ?, ?, '', ?)",
		user.ID, user.Email, user.PasswordHash, user.CreatedAt.UnixNano())
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, display_name, created_at FROM users WHERE email = ?",
		normalizeEmail(email)))
}

func (s *Store) UserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, display_name, created_at FROM users WHERE id = ?", id))
}

// EnsureGoogleUser returns the account for a Google-verified email, creating
// it on first sign-in. Provisioned accounts carry no password hash.
func (s *Store) EnsureGoogleUser(ctx context.Context, email, displayName string) (User, error) {
	user, err := s.UserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	user = User{
		ID:          uuid.NewString(),
		Email:       normalizeEmail(email),
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   s.now(),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, display_name, created_at) VALUES (?, ?, '', ?, ?)",
		user.ID, user.Email, user.DisplayName, user.CreatedAt.UnixNano())
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			// Lost a race against a concurrent first sign-in.
			return s.UserByEmail(ctx, email)
		}
		return User{}, fmt.Errorf("insert google user: %w", err)
	}
	return user, nil
}

func (s *Store) SetDisplayName(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET display_name = ? WHERE id = ?",
		strings.TrimSpace(name), id)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) SetPasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) scanUser(row *sql.Row) (User, error) {
	var user User
	var createdAt int64
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = time.Unix(0, createdAt)
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

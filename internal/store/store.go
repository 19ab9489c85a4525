// Package store is the document store behind NoteFlow: user accounts and
// owner-scoped notes in a single SQLite file, plus an in-process change feed
// that fires after every successful note mutation so live mirrors can reload.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrNoteNotFound = errors.New("note not found")

	ErrTitleRequired   = errors.New("title must not be blank")
	ErrContentRequired = errors.New("content must not be blank")
)

type Store struct {
	db   *sql.DB
	feed *feed
	now  func() time.Time
}

func Open(path string) (*Store, error) {
	return OpenWithOptions(path, OpenOptions{})
}

type OpenOptions struct {
	BusyTimeout time.Duration
}

func OpenWithOptions(path string, opts OpenOptions) (*Store, error) {
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := path + "?_busy_timeout=" + strconv.Itoa(int(busy.Milliseconds())) + "&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Store{
		db:   db,
		feed: newFeed(),
		now:  time.Now,
	}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	version, err := s.currentSchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version != schemaVersion {
		return s.setSchemaVersion(ctx, schemaVersion)
	}
	return nil
}

func (s *Store) currentSchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (s *Store) setSchemaVersion(ctx context.Context, v int) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO schema_version(version) VALUES(?)", v)
	return err
}

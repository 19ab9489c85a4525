package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Note struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	IsFavorite bool      `json:"isFavorite"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ValidateNote enforces the creation policy: both title and content are
// required and must not be blank after trimming.
func ValidateNote(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(content) == "" {
		return ErrContentRequired
	}
	return nil
}

func (s *Store) CreateNote(ctx context.Context, ownerID, title, content string) (Note, error) {
	if err := ValidateNote(title, content); err != nil {
		return Note{}, err
	}
	now := s.now()
	note := Note{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (id, owner_id, title, content, is_favorite, created_at, updated_at) VALUES (?, ?, ?, ?, 0, ?, ?)",
		note.ID, note.OwnerID, note.Title, note.Content, now.UnixNano(), now.UnixNano())
	if err != nil {
		return Note{}, fmt.Errorf("insert note: %w", err)
	}
	s.feed.notify(ownerID)
	return note, nil
}

func (s *Store) UpdateNote(ctx context.Context, ownerID, id, title, content string) (Note, error) {
	if err := ValidateNote(title, content); err != nil {
		return Note{}, err
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		"UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ? AND owner_id = ?",
		title, content, now.UnixNano(), id, ownerID)
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return Note{}, err
	}
	s.feed.notify(ownerID)
	return s.noteByID(ctx, ownerID, id)
}

// SetFavorite writes the favorite flag as a partial update. Callers toggle by
// sending the negation of the value they currently mirror.
func (s *Store) SetFavorite(ctx context.Context, ownerID, id string, favorite bool) (Note, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		"UPDATE notes SET is_favorite = ?, updated_at = ? WHERE id = ? AND owner_id = ?",
		boolToInt(favorite), now.UnixNano(), id, ownerID)
	if err != nil {
		return Note{}, fmt.Errorf("set favorite: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return Note{}, err
	}
	s.feed.notify(ownerID)
	return s.noteByID(ctx, ownerID, id)
}

func (s *Store) DeleteNote(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM notes WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	s.feed.notify(ownerID)
	return nil
}

// NotesByOwner returns the owner's full collection, newest first. This is the
// one query live mirrors replay after every change notification.
func (s *Store) NotesByOwner(ctx context.Context, ownerID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner_id, title, content, is_favorite, created_at, updated_at FROM notes WHERE owner_id = ? ORDER BY created_at DESC, id",
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (s *Store) noteByID(ctx context.Context, ownerID, id string) (Note, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, title, content, is_favorite, created_at, updated_at FROM notes WHERE id = ? AND owner_id = ?",
		id, ownerID)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNoteNotFound
	}
	return note, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (Note, error) {
	var note Note
	var favorite int
	var createdAt, updatedAt int64
	if err := row.Scan(&note.ID, &note.OwnerID, &note.Title, &note.Content, &favorite, &createdAt, &updatedAt); err != nil {
		return Note{}, err
	}
	note.IsFavorite = favorite != 0
	note.CreatedAt = time.Unix(0, createdAt)
	note.UpdatedAt = time.Unix(0, updatedAt)
	return note, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "noteflow.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init store: %v", err)
	}
	return s
}

func newTestUser(t *testing.T, s *Store, email string) User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), email, "$argon2id$stub")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func TestInitIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	newTestUser(t, s, "alice@example.com")

	if _, err := s.CreateUser(context.Background(), "Alice@Example.com", "hash"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserByEmail(t *testing.T) {
	s := newTestStore(t)
	created := newTestUser(t, s, "alice@example.com")

	user, err := s.UserByEmail(context.Background(), "  ALICE@example.com ")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("expected id %s, got %s", created.ID, user.ID)
	}

	if _, err := s.UserByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestEnsureGoogleUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.EnsureGoogleUser(ctx, "warung@gmail.com", "Warung Owner")
	if err != nil {
		t.Fatalf("EnsureGoogleUser: %v", err)
	}
	if user.PasswordHash != "" {
		t.Fatal("expected google account to have no password hash")
	}
	if user.DisplayName != "Warung Owner" {
		t.Fatalf("unexpected display name %q", user.DisplayName)
	}

	again, err := s.EnsureGoogleUser(ctx, "warung@gmail.com", "Someone Else")
	if err != nil {
		t.Fatalf("EnsureGoogleUser again: %v", err)
	}
	if again.ID != user.ID {
		t.Fatal("expected second sign-in to reuse the account")
	}
	if again.DisplayName != "Warung Owner" {
		t.Fatal("expected display name to be kept on repeat sign-in")
	}
}

func TestDisplayLabel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	if got := user.DisplayLabel(); got != "alice" {
		t.Fatalf("expected email local part fallback, got %q", got)
	}

	if err := s.SetDisplayName(ctx, user.ID, "  Alice W  "); err != nil {
		t.Fatalf("SetDisplayName: %v", err)
	}
	user, err := s.UserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserByID: %v", err)
	}
	if got := user.DisplayLabel(); got != "Alice W" {
		t.Fatalf("expected trimmed display name, got %q", got)
	}

	if err := s.SetDisplayName(ctx, "missing-id", "x"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSetPasswordHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	if err := s.SetPasswordHash(ctx, user.ID, "new-hash"); err != nil {
		t.Fatalf("SetPasswordHash: %v", err)
	}
	user, err := s.UserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserByID: %v", err)
	}
	if user.PasswordHash != "new-hash" {
		t.Fatalf("unexpected hash %q", user.PasswordHash)
	}

	if err := s.SetPasswordHash(ctx, "missing-id", "h"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateNoteDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	note, err := s.CreateNote(ctx, user.ID, "Groceries", "Milk, eggs")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if note.ID == "" {
		t.Fatal("expected assigned id")
	}
	if note.OwnerID != user.ID {
		t.Fatalf("expected owner %s, got %s", user.ID, note.OwnerID)
	}
	if note.IsFavorite {
		t.Fatal("expected new note to not be favorite")
	}
	if !note.UpdatedAt.Equal(note.CreatedAt) {
		t.Fatal("expected updatedAt to equal createdAt at creation")
	}
}

func TestCreateNoteValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	if _, err := s.CreateNote(ctx, user.ID, "   ", "body"); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := s.CreateNote(ctx, user.ID, "title", "\n\t "); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("expected ErrContentRequired, got %v", err)
	}
	if _, err := s.CreateNote(ctx, user.ID, "", ""); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}

	notes, err := s.NotesByOwner(ctx, user.ID)
	if err != nil {
		t.Fatalf("NotesByOwner: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("expected rejected creates to write nothing, got %d notes", len(notes))
	}
}

func TestValidationSkipsTheDatabase(t *testing.T) {
	s := newTestStore(t)
	// With the database gone, only a call that never reaches it can
	// still fail with a validation sentinel.
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.CreateNote(context.Background(), "owner", "", ""); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired before any db access, got %v", err)
	}
}

func TestNotesByOwnerOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	base := time.Now()
	for i, title := range []string{"first", "second", "third"} {
		stamp := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return stamp }
		if _, err := s.CreateNote(ctx, user.ID, title, "body"); err != nil {
			t.Fatalf("CreateNote %s: %v", title, err)
		}
	}

	notes, err := s.NotesByOwner(ctx, user.ID)
	if err != nil {
		t.Fatalf("NotesByOwner: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(notes))
	}
	if notes[0].Title != "third" || notes[2].Title != "first" {
		t.Fatalf("expected newest first, got %s..%s", notes[0].Title, notes[2].Title)
	}
	for i := 1; i < len(notes); i++ {
		if notes[i].CreatedAt.After(notes[i-1].CreatedAt) {
			t.Fatal("expected createdAt to be non-increasing")
		}
	}
}

func TestOwnerIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice@example.com")
	bob := newTestUser(t, s, "bob@example.com")

	aliceNote, err := s.CreateNote(ctx, alice.ID, "alice note", "body")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := s.CreateNote(ctx, bob.ID, "bob note", "body"); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	notes, err := s.NotesByOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("NotesByOwner: %v", err)
	}
	for _, note := range notes {
		if note.OwnerID != alice.ID {
			t.Fatalf("alice's list contains foreign note %s", note.ID)
		}
	}

	// Mutations through the wrong owner behave as if the note did not exist.
	if _, err := s.UpdateNote(ctx, bob.ID, aliceNote.ID, "stolen", "body"); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
	if err := s.DeleteNote(ctx, bob.ID, aliceNote.ID); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
	if _, err := s.SetFavorite(ctx, bob.ID, aliceNote.ID, true); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
}

func TestUpdateNote(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	created := time.Now()
	s.now = func() time.Time { return created }
	note, err := s.CreateNote(ctx, user.ID, "Groceries", "Milk")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	s.now = func() time.Time { return created.Add(time.Minute) }
	updated, err := s.UpdateNote(ctx, user.ID, note.ID, "Groceries", "Milk, eggs")
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.Content != "Milk, eggs" {
		t.Fatalf("unexpected content %q", updated.Content)
	}
	if !updated.CreatedAt.Equal(note.CreatedAt) {
		t.Fatal("expected createdAt to be immutable")
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatal("expected updatedAt to advance")
	}

	if _, err := s.UpdateNote(ctx, user.ID, "missing-id", "t", "c"); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
}

func TestDeleteNote(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	note, err := s.CreateNote(ctx, user.ID, "Groceries", "Milk")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if err := s.DeleteNote(ctx, user.ID, note.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}

	notes, err := s.NotesByOwner(ctx, user.ID)
	if err != nil {
		t.Fatalf("NotesByOwner: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("expected empty collection, got %d notes", len(notes))
	}

	// Deleting a missing id errors and leaves the collection unchanged.
	if err := s.DeleteNote(ctx, user.ID, note.ID); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
}

func TestSetFavoriteRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	note, err := s.CreateNote(ctx, user.ID, "Groceries", "Milk")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	flipped, err := s.SetFavorite(ctx, user.ID, note.ID, !note.IsFavorite)
	if err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	if !flipped.IsFavorite {
		t.Fatal("expected favorite after first toggle")
	}

	restored, err := s.SetFavorite(ctx, user.ID, note.ID, !flipped.IsFavorite)
	if err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	if restored.IsFavorite != note.IsFavorite {
		t.Fatal("expected double toggle to restore the original flag")
	}
}

func TestWatchNotifiesOnMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	ch, cancel := s.Watch(user.ID)
	defer cancel()

	note, err := s.CreateNote(ctx, user.ID, "Groceries", "Milk")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	expectSignal(t, ch, "create")

	if _, err := s.SetFavorite(ctx, user.ID, note.ID, true); err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	expectSignal(t, ch, "favorite")

	if err := s.DeleteNote(ctx, user.ID, note.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	expectSignal(t, ch, "delete")
}

func TestWatchScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice@example.com")
	bob := newTestUser(t, s, "bob@example.com")

	ch, cancel := s.Watch(alice.ID)
	defer cancel()

	if _, err := s.CreateNote(ctx, bob.ID, "bob note", "body"); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	select {
	case <-ch:
		t.Fatal("alice's watcher fired for bob's mutation")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchCoalescesBursts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	ch, cancel := s.Watch(user.ID)
	defer cancel()

	for i := 0; i < 5; i++ {
		if _, err := s.CreateNote(ctx, user.ID, "note", "body"); err != nil {
			t.Fatalf("CreateNote: %v", err)
		}
	}
	if pending := len(ch); pending != 1 {
		t.Fatalf("expected a burst to coalesce into 1 pending signal, got %d", pending)
	}
}

func TestWatcherAccounting(t *testing.T) {
	s := newTestStore(t)
	user := newTestUser(t, s, "alice@example.com")

	if got := s.WatcherCount(user.ID); got != 0 {
		t.Fatalf("expected 0 watchers, got %d", got)
	}

	_, cancel1 := s.Watch(user.ID)
	_, cancel2 := s.Watch(user.ID)
	if got := s.WatcherCount(user.ID); got != 2 {
		t.Fatalf("expected 2 watchers, got %d", got)
	}

	cancel1()
	cancel1() // idempotent
	if got := s.WatcherCount(user.ID); got != 1 {
		t.Fatalf("expected 1 watcher after cancel, got %d", got)
	}

	cancel2()
	if got := s.WatcherCount(user.ID); got != 0 {
		t.Fatalf("expected 0 watchers after teardown, got %d", got)
	}

	// A mutation with no watchers must not panic or block.
	if _, err := s.CreateNote(context.Background(), user.ID, "note", "body"); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
}

func expectSignal(t *testing.T, ch <-chan struct{}, op string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("expected change notification after %s", op)
	}
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/uuid"

	"cattube/internal/models"
)

func newTestStore(t *testing.T) *PebbleStore {
	t.Helper()
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPebbleStore(db)
}

// stepClock returns a clock that advances one minute per call.
func stepClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Minute)
	}
}

func TestPebbleVideos_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	videos := store.Videos()
	ctx := context.Background()
	owner := uuid.New()

	v, err := videos.Create(ctx, "Cat on keyboard", "asm-1", owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.ID == uuid.Nil || v.UploadedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be assigned, got %+v", v)
	}
	if v.TranscodedURL != "" || v.ThumbnailURL != "" {
		t.Fatalf("new video must not have output urls")
	}

	byID, err := videos.GetByID(ctx, v.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Title != "Cat on keyboard" || byID.OwnerID != owner {
		t.Fatalf("unexpected video %+v", byID)
	}

	byAsm, err := videos.GetByAssemblyID(ctx, "asm-1")
	if err != nil {
		t.Fatalf("get by assembly: %v", err)
	}
	if byAsm.ID != v.ID {
		t.Fatalf("expected %s, got %s", v.ID, byAsm.ID)
	}
}

func TestPebbleVideos_DuplicateAssembly(t *testing.T) {
	videos := newTestStore(t).Videos()
	ctx := context.Background()

	if _, err := videos.Create(ctx, "a", "asm-dup", uuid.New()); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := videos.Create(ctx, "b", "asm-dup", uuid.New())
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestPebbleVideos_NotFound(t *testing.T) {
	videos := newTestStore(t).Videos()
	ctx := context.Background()

	if _, err := videos.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := videos.GetByAssemblyID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPebbleVideos_UpdateKeepsAssemblyID(t *testing.T) {
	videos := newTestStore(t).Videos()
	ctx := context.Background()

	v, _ := videos.Create(ctx, "a", "asm-keep", uuid.New())
	v.AssemblyID = "something-else"
	v.TranscodedURL = "https://cdn/watermarked/asm-keep/out.mp4"
	v.ThumbnailURL = "https://cdn/thumbnail/asm-keep/t.jpg"
	if err := videos.Update(ctx, v); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := videos.GetByAssemblyID(ctx, "asm-keep")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AssemblyID != "asm-keep" {
		t.Fatalf("assembly id changed to %q", got.AssemblyID)
	}
	if got.TranscodedURL != v.TranscodedURL || got.ThumbnailURL != v.ThumbnailURL {
		t.Fatalf("urls not persisted: %+v", got)
	}
}

func TestPebbleVideos_UpdateMissing(t *testing.T) {
	videos := newTestStore(t).Videos()
	err := videos.Update(context.Background(), &models.Video{ID: uuid.New(), Title: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPebbleVideos_ListNewestFirstAndDeleteAll(t *testing.T) {
	store := newTestStore(t)
	store.now = stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	videos := store.Videos()
	ctx := context.Background()

	for _, asm := range []string{"first", "second", "third"} {
		if _, err := videos.Create(ctx, asm, asm, uuid.New()); err != nil {
			t.Fatalf("create %s: %v", asm, err)
		}
	}

	list, err := videos.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].AssemblyID != "third" || list[2].AssemblyID != "first" {
		t.Fatalf("unexpected order: %v", []string{list[0].AssemblyID, list[1].AssemblyID, list[2].AssemblyID})
	}

	n, err := videos.DeleteAll(ctx)
	if err != nil || n != 3 {
		t.Fatalf("delete all = %d, %v", n, err)
	}
	list, _ = videos.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty store, got %d", len(list))
	}

	// The assembly index is cleared too, so the id can be reused.
	if _, err := videos.Create(ctx, "again", "first", uuid.New()); err != nil {
		t.Fatalf("recreate after delete: %v", err)
	}
}

func TestPebbleUsers(t *testing.T) {
	users := newTestStore(t).Users()
	ctx := context.Background()

	u, err := users.Create(ctx, "whiskers", "$2a$12$hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := users.GetByUsername(ctx, "whiskers")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "$2a$12$hash" {
		t.Fatalf("unexpected user %+v", got)
	}

	if _, err := users.Create(ctx, "whiskers", "x"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := users.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrefixEnd(t *testing.T) {
	if got := string(prefixEnd([]byte("video/"))); got != "video0" {
		t.Fatalf("prefixEnd(video/) = %q", got)
	}
	if got := prefixEnd([]byte{0xff, 0xff}); got != nil {
		t.Fatalf("expected nil upper bound, got %v", got)
	}
}

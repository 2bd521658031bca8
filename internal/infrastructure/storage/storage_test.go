package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestKeyNamespace(t *testing.T) {
	if got, want := UsersKey(), "users"; got != want {
		t.Errorf("UsersKey() = %q, want %q", got, want)
	}
	if got, want := CurrentUserKey(), "currentUser"; got != want {
		t.Errorf("CurrentUserKey() = %q, want %q", got, want)
	}
	if got, want := ThreadsKey("u1"), "chat_threads_u1"; got != want {
		t.Errorf("ThreadsKey() = %q, want %q", got, want)
	}
	if got, want := MessagesKey("u1", 1700000000000), "chat_messages_u1_1700000000000"; got != want {
		t.Errorf("MessagesKey() = %q, want %q", got, want)
	}
	if got, want := ModelKey("u1"), "selected_model_u1"; got != want {
		t.Errorf("ModelKey() = %q, want %q", got, want)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || value != "v" {
		t.Fatalf("Get(k) = %q ok=%v err=%v, want v", value, ok, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("Get(k) after delete reported presence")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := store.Set(ctx, ThreadsKey("u1"), `[{"id":1}]`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Reopen and expect the value to survive.
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() reopen error = %v", err)
	}
	value, ok, err := reopened.Get(ctx, ThreadsKey("u1"))
	if err != nil || !ok || value != `[{"id":1}]` {
		t.Fatalf("Get() after reopen = %q ok=%v err=%v", value, ok, err)
	}
}

func TestFileStoreCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() on corrupted file error = %v, want silent recovery", err)
	}
	if _, ok, _ := store.Get(context.Background(), "anything"); ok {
		t.Fatal("corrupted file should degrade to an empty keyspace")
	}
}

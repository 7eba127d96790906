package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_PutGetDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "saves"))
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}

	ctx := context.Background()

	if err := store.Put(ctx, "slot1", []byte("payload")); err != nil {
		t.Fatalf("Failed to put slot: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saves", "slot1.save")); err != nil {
		t.Fatalf("Expected save file on disk: %v", err)
	}

	data, err := store.Get(ctx, "slot1")
	if err != nil {
		t.Fatalf("Failed to get slot: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Expected payload, got %q", data)
	}

	if err := store.Delete(ctx, "slot1"); err != nil {
		t.Fatalf("Failed to delete slot: %v", err)
	}
	data, err = store.Get(ctx, "slot1")
	if err != nil {
		t.Fatalf("Unexpected error after deletion: %v", err)
	}
	if data != nil {
		t.Error("Expected nil data for deleted slot")
	}

	// Deleting an absent slot is not an error.
	if err := store.Delete(ctx, "never_saved"); err != nil {
		t.Errorf("Expected no error deleting absent slot, got: %v", err)
	}
}

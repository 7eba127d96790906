package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/tadventure/engine/pkg/save"
	"github.com/tadventure/engine/pkg/state"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	// Start miniredis
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := NewRedisStore(mr.Addr(), "test_story", logger)

	return store, mr
}

func TestRedisStore_PutGetDelete(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	if err := store.Put(ctx, "slot1", []byte(`{"day":3}`)); err != nil {
		t.Fatalf("Failed to put slot: %v", err)
	}

	data, err := store.Get(ctx, "slot1")
	if err != nil {
		t.Fatalf("Failed to get slot: %v", err)
	}
	if string(data) != `{"day":3}` {
		t.Errorf("Expected stored payload, got %q", data)
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
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	data, err := store.Get(context.Background(), "never_saved")
	if err != nil {
		t.Fatalf("Expected no error for missing slot, got: %v", err)
	}
	if data != nil {
		t.Error("Expected nil data for missing slot")
	}
}

func TestRedisStore_StoryIsolation(t *testing.T) {
	_, mr := setupTestRedis(t)
	defer mr.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	a := NewRedisStore(mr.Addr(), "story_a", logger)
	b := NewRedisStore(mr.Addr(), "story_b", logger)
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	if err := a.Put(ctx, "quick", []byte("a-data")); err != nil {
		t.Fatalf("Failed to put slot: %v", err)
	}

	data, err := b.Get(ctx, "quick")
	if err != nil {
		t.Fatalf("Failed to get slot: %v", err)
	}
	if data != nil {
		t.Error("Slot from another story should not be visible")
	}
}

// A manager writing through Redis should be able to load a slot it has
// never seen in memory, as a fresh session would.
func TestRedisStore_ManagerRoundTrip(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx := context.Background()

	gs := state.NewGameState("start")
	gs.Day = 4
	player := state.NewCharacter("Alex", true)
	player.SetStat(state.StatHealth, 72)
	roster := state.NewRoster(player)

	first := save.NewManager("Test Story", store, logger)
	if err := first.Save(ctx, "checkpoint", gs, roster); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	// Fresh manager, same store: no in-memory slots.
	second := save.NewManager("Test Story", store, logger)
	loadedGS := state.NewGameState("start")
	loadedRoster := state.NewRoster(state.NewCharacter("Alex", true))
	if err := second.Load(ctx, "checkpoint", &loadedGS, &loadedRoster); err != nil {
		t.Fatalf("Failed to load from store: %v", err)
	}

	if loadedGS.Day != 4 {
		t.Errorf("Expected day 4, got %d", loadedGS.Day)
	}
	if got := loadedRoster.Player().Stats[state.StatHealth]; got != 72 {
		t.Errorf("Expected health 72, got %v", got)
	}
}

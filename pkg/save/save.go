// Package save owns named save slots and the turn-by-turn undo history.
// Snapshots are deep, independent copies built fully before any swap, so a
// failed restore never leaves mixed state.
package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tadventure/engine/pkg/state"
)

var (
	// ErrNotFound is returned for operations on a slot that does not exist.
	ErrNotFound = errors.New("save slot not found")
	// ErrEmptyHistory is returned by Undo when no checkpoint remains.
	ErrEmptyHistory = errors.New("nothing to undo")
)

// UndoDepth bounds the undo history; the oldest checkpoint is evicted
// once the bound is reached.
const UndoDepth = 50

// Snapshot is one captured state bundle.
type Snapshot struct {
	Game   *state.GameState `json:"game"`
	Roster *state.Roster    `json:"roster"`
}

// Slot is a named snapshot plus listing metadata.
type Slot struct {
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Snapshot  Snapshot  `json:"snapshot"`
}

// Store is the opaque byte-level persistence a Manager may write through
// to, keyed by slot name. Get returns nil data (no error) for an absent
// slot.
type Store interface {
	Put(ctx context.Context, slot string, data []byte) error
	Get(ctx context.Context, slot string) ([]byte, error)
	Delete(ctx context.Context, slot string) error
}

// Manager is created at session start and torn down at session end; it is
// the only owner of save/undo state.
type Manager struct {
	title  string
	store  Store
	logger *slog.Logger

	slots []*Slot // creation order
	undo  []Snapshot
}

func NewManager(storyTitle string, store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{title: storyTitle, store: store, logger: logger}
}

func capture(gs *state.GameState, roster *state.Roster) Snapshot {
	return Snapshot{Game: gs.Clone(), Roster: roster.Clone()}
}

// Save captures the live state under a named slot, overwriting a slot of
// the same name while keeping its creation order.
func (m *Manager) Save(ctx context.Context, name string, gs *state.GameState, roster *state.Roster) error {
	slot := &Slot{
		Name:      name,
		Title:     m.title,
		CreatedAt: time.Now(),
		Snapshot:  capture(gs, roster),
	}

	replaced := false
	for i, s := range m.slots {
		if s.Name == name {
			slot.CreatedAt = s.CreatedAt
			m.slots[i] = slot
			replaced = true
			break
		}
	}
	if !replaced {
		m.slots = append(m.slots, slot)
	}

	if m.store != nil {
		data, err := json.Marshal(slot)
		if err != nil {
			return fmt.Errorf("marshal save slot: %w", err)
		}
		if err := m.store.Put(ctx, name, data); err != nil {
			return fmt.Errorf("persist save slot %q: %w", name, err)
		}
	}
	m.logger.Debug("game saved", "slot", name)
	return nil
}

// Load replaces the live state with the named slot's snapshot. The
// replacement is built fully before the swap, and the undo history is not
// touched: loading is not itself undoable.
func (m *Manager) Load(ctx context.Context, name string, gs **state.GameState, roster **state.Roster) error {
	slot := m.find(name)
	if slot == nil && m.store != nil {
		data, err := m.store.Get(ctx, name)
		if err != nil {
			return fmt.Errorf("read save slot %q: %w", name, err)
		}
		if data != nil {
			restored := &Slot{}
			if err := json.Unmarshal(data, restored); err != nil {
				return fmt.Errorf("decode save slot %q: %w", name, err)
			}
			slot = restored
		}
	}
	if slot == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	next := Snapshot{Game: slot.Snapshot.Game.Clone(), Roster: slot.Snapshot.Roster.Clone()}
	*gs = next.Game
	*roster = next.Roster
	m.logger.Debug("game loaded", "slot", name)
	return nil
}

// Delete removes a slot from memory and the store.
func (m *Manager) Delete(ctx context.Context, name string) error {
	found := false
	for i, s := range m.slots {
		if s.Name == name {
			m.slots = append(m.slots[:i], m.slots[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if m.store != nil {
		if err := m.store.Delete(ctx, name); err != nil {
			return fmt.Errorf("delete save slot %q: %w", name, err)
		}
	}
	return nil
}

// List returns slots in creation order.
func (m *Manager) List() []*Slot {
	return append([]*Slot(nil), m.slots...)
}

func (m *Manager) find(name string) *Slot {
	for _, s := range m.slots {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// PushCheckpoint records pre-turn state. Called by the interpreter
// immediately before a turn's action and transition run.
func (m *Manager) PushCheckpoint(gs *state.GameState, roster *state.Roster) {
	if len(m.undo) >= UndoDepth {
		m.undo = m.undo[1:]
	}
	m.undo = append(m.undo, capture(gs, roster))
}

// Undo pops the most recent checkpoint and restores it verbatim,
// including the scene pointer. With no history the state is untouched.
func (m *Manager) Undo(gs **state.GameState, roster **state.Roster) error {
	if len(m.undo) == 0 {
		return ErrEmptyHistory
	}
	last := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	*gs = last.Game
	*roster = last.Roster
	return nil
}

// HistoryLen reports how many undo checkpoints are held.
func (m *Manager) HistoryLen() int {
	return len(m.undo)
}

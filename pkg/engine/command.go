package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tadventure/engine/pkg/save"
)

const helpText = `Available commands:
- help: Show this help message
- undo: Undo the last action
- save [name]: Save the game with optional name
- load [name]: Load a saved game
- saves: List all saved games
- delete [name]: Delete a saved game
- quit: Exit the game`

// IsCommand reports whether input looks like a runtime command rather
// than a choice selection.
func IsCommand(input string) bool {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "help", "undo", "save", "load", "saves", "list", "delete":
		return true
	}
	return false
}

// Command dispatches a runtime command against the live session and
// returns a user-visible message. Failed commands report the problem
// without mutating game state.
func (i *Interpreter) Command(ctx context.Context, input string) string {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return "Please enter a command."
	}
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "help":
		return helpText

	case "undo":
		if err := i.UndoTurn(); err != nil {
			if errors.Is(err, save.ErrEmptyHistory) {
				return "Nothing to undo."
			}
			return fmt.Sprintf("Error restoring state: %v", err)
		}
		return "Previous state restored."

	case "save":
		name := fmt.Sprintf("autosave_day%d", i.gs.Day)
		if len(fields) > 1 {
			name = fields[1]
		}
		if err := i.SaveSlot(ctx, name); err != nil {
			return fmt.Sprintf("Error saving game: %v", err)
		}
		return fmt.Sprintf("Game saved as '%s'.", name)

	case "load":
		if len(fields) < 2 {
			listing := i.formatSaves()
			if listing == "" {
				return "No saved games found."
			}
			return "Available saves:\n" + listing + "\nUse 'load [name]' to load a specific save."
		}
		name := fields[1]
		if err := i.LoadSlot(ctx, name); err != nil {
			if errors.Is(err, save.ErrNotFound) {
				return fmt.Sprintf("Save '%s' not found.", name)
			}
			return fmt.Sprintf("Error loading game: %v", err)
		}
		return fmt.Sprintf("Loaded save '%s'.", name)

	case "saves", "list":
		listing := i.formatSaves()
		if listing == "" {
			return "No saved games found."
		}
		return "Available saves:\n" + listing

	case "delete":
		if len(fields) < 2 {
			return "Please specify a save name to delete."
		}
		name := fields[1]
		if err := i.saves.Delete(ctx, name); err != nil {
			if errors.Is(err, save.ErrNotFound) {
				return fmt.Sprintf("Save '%s' not found.", name)
			}
			return fmt.Sprintf("Error deleting save: %v", err)
		}
		return fmt.Sprintf("Save '%s' deleted.", name)
	}

	return fmt.Sprintf("Unknown command: %s", cmd)
}

func (i *Interpreter) formatSaves() string {
	slots := i.saves.List()
	if len(slots) == 0 {
		return ""
	}
	lines := make([]string, 0, len(slots))
	for n, slot := range slots {
		lines = append(lines, fmt.Sprintf("%d. %s (%s, %s)",
			n+1, slot.Name, slot.CreatedAt.Format("2006-01-02 15:04:05"), slot.Title))
	}
	return strings.Join(lines, "\n")
}

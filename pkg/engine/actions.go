package engine

import (
	"fmt"

	"github.com/tadventure/engine/pkg/state"
)

// Session is the live state bundle handed to action callbacks. Callbacks
// may mutate game and character state and may request a transition, which
// takes precedence over any statically-resolved goto for the turn.
type Session struct {
	Game   *state.GameState
	Roster *state.Roster

	requestedScene string
}

// RequestTransition asks the interpreter to move to sceneID at the end of
// the current turn.
func (s *Session) RequestTransition(sceneID string) {
	s.requestedScene = sceneID
}

// Player returns the player character.
func (s *Session) Player() *state.Character {
	return s.Roster.Player()
}

// ActionError wraps a failed external callback. It is recoverable: the
// turn is reported failed, state rolls back, the session continues.
type ActionError struct {
	ActionID string
	Err      error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q failed: %v", e.ActionID, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// ActionFunc is an author-supplied callback. Its return text is appended
// to the turn's output.
type ActionFunc func(s *Session) (string, error)

// Actions is the external action registry the interpreter invokes through.
type Actions interface {
	Invoke(actionID string, s *Session) (string, error)
}

// Registry is the standard Actions implementation: name-indexed callbacks
// registered by the host before the session starts.
type Registry struct {
	fns map[string]ActionFunc
}

func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]ActionFunc)}
}

// Register inserts or overwrites a callback.
func (r *Registry) Register(actionID string, fn ActionFunc) {
	r.fns[actionID] = fn
}

// Has reports whether an action id is registered.
func (r *Registry) Has(actionID string) bool {
	_, ok := r.fns[actionID]
	return ok
}

// Invoke runs a registered callback. An unregistered id is a no-op with
// neutral text, matching the story format's forgiving action semantics.
func (r *Registry) Invoke(actionID string, s *Session) (string, error) {
	fn, ok := r.fns[actionID]
	if !ok {
		return "Nothing happens.", nil
	}
	out, err := fn(s)
	if err != nil {
		return "", &ActionError{ActionID: actionID, Err: err}
	}
	return out, nil
}

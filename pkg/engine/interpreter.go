// Package engine drives turn execution: rendering scenes through the
// template engine, filtering and resolving choices, executing actions,
// and applying transitions against a save/undo manager.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tadventure/engine/pkg/descriptor"
	"github.com/tadventure/engine/pkg/save"
	"github.com/tadventure/engine/pkg/state"
	"github.com/tadventure/engine/pkg/story"
	"github.com/tadventure/engine/pkg/template"
)

// Phase is the interpreter's position in the turn cycle.
type Phase int

const (
	PhaseRendering Phase = iota
	PhaseAwaitingChoice
	PhaseAwaitingContinue
	PhaseEnding
)

func (p Phase) String() string {
	switch p {
	case PhaseRendering:
		return "rendering"
	case PhaseAwaitingChoice:
		return "awaiting-choice"
	case PhaseAwaitingContinue:
		return "awaiting-continue"
	default:
		return "ending"
	}
}

// ChoiceView is one visible choice with its destination already resolved.
// Resolution happens once per presentation: an action's side effects
// cannot retroactively change an announced destination within the turn.
type ChoiceView struct {
	Text     string
	ActionID string
	Target   string // resolved scene id, empty = stay on current scene
}

// Turn is a rendered presentation of the current scene.
type Turn struct {
	SceneID  string
	Title    string
	Text     string
	Choices  []ChoiceView
	Continue *template.AutoGoto
	Phase    Phase
}

// TurnResult reports what a resolved turn produced.
type TurnResult struct {
	ActionText     string
	TransitionText string
	Next           *Turn
}

// Interpreter executes one story session, single-threaded and
// turn-synchronous. The document is immutable; only GameState and the
// roster mutate.
type Interpreter struct {
	doc      *story.Document
	registry *descriptor.Registry
	actions  Actions
	saves    *save.Manager
	logger   *slog.Logger

	gs     *state.GameState
	roster *state.Roster

	current *Turn
}

// New builds a session: characters are instantiated from the document's
// templates and game state starts at the document's start scene.
func New(doc *story.Document, actions Actions, saves *save.Manager, registry *descriptor.Registry, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = descriptor.NewRegistry()
	}

	roster := buildRoster(doc)
	gs := state.NewGameState(doc.StartSceneID)

	return &Interpreter{
		doc:      doc,
		registry: registry,
		actions:  actions,
		saves:    saves,
		logger:   logger,
		gs:       gs,
		roster:   roster,
	}
}

func buildRoster(doc *story.Document) *state.Roster {
	var player *state.Character
	var npcs []*state.Character
	for _, ct := range doc.Characters {
		c := state.NewCharacter(ct.Name, ct.IsPlayer)
		for k, v := range ct.Attributes {
			if k == "is_player" {
				continue
			}
			c.SetAttribute(k, state.FromAny(v))
		}
		c.Inventory = append([]string(nil), ct.Inventory...)
		for k, v := range ct.Relationships {
			c.Relationships[k] = v
		}
		if ct.IsPlayer && player == nil {
			player = c
		} else {
			npcs = append(npcs, c)
		}
	}
	if player == nil {
		player = state.NewCharacter("Player", true)
	}
	roster := state.NewRoster(player)
	for _, npc := range npcs {
		roster.Add(npc)
	}
	return roster
}

// GameState exposes the live state for hosts and tests.
func (i *Interpreter) GameState() *state.GameState { return i.gs }

// Roster exposes the live character collection.
func (i *Interpreter) Roster() *state.Roster { return i.roster }

// Saves exposes the session's save/undo manager.
func (i *Interpreter) Saves() *save.Manager { return i.saves }

// Descriptors exposes the descriptor registry.
func (i *Interpreter) Descriptors() *descriptor.Registry { return i.registry }

func (i *Interpreter) context() *template.Context {
	return &template.Context{
		Game:     i.gs,
		Roster:   i.roster,
		Registry: i.registry,
	}
}

// Current renders the current scene, or returns the cached presentation
// for this turn. Rendering mutates nothing, so a failed render leaves the
// session intact.
func (i *Interpreter) Current() (*Turn, error) {
	if i.current != nil && i.current.SceneID == i.gs.CurrentSceneID {
		return i.current, nil
	}
	turn, err := i.render(i.gs.CurrentSceneID)
	if err != nil {
		return nil, err
	}
	i.current = turn
	return turn, nil
}

func (i *Interpreter) render(sceneID string) (*Turn, error) {
	scene, ok := i.doc.Scenes[sceneID]
	if !ok {
		// Targets were validated at load; reaching this is a bug or a
		// corrupted save.
		return nil, fmt.Errorf("scene %q does not exist", sceneID)
	}

	ctx := i.context()
	res, err := template.Render(scene.RawContent, ctx)
	if err != nil {
		return nil, err
	}

	turn := &Turn{
		SceneID:  sceneID,
		Title:    scene.Title,
		Text:     res.Text,
		Continue: res.Goto,
	}

	for _, choice := range scene.Choices {
		if choice.Condition != "" {
			visible, err := template.EvalCondition(choice.Condition, ctx)
			if err != nil {
				return nil, err
			}
			if !visible {
				continue
			}
		}
		text, err := template.RenderInline(choice.TextTemplate, ctx)
		if err != nil {
			return nil, err
		}
		target, err := i.resolveGoto(choice.Goto, ctx)
		if err != nil {
			return nil, err
		}
		turn.Choices = append(turn.Choices, ChoiceView{
			Text:     text,
			ActionID: choice.ActionID,
			Target:   target,
		})
	}

	switch {
	case len(turn.Choices) > 0:
		turn.Phase = PhaseAwaitingChoice
	case turn.Continue != nil:
		turn.Phase = PhaseAwaitingContinue
	default:
		turn.Phase = PhaseEnding
	}
	return turn, nil
}

// resolveGoto fixes a choice's concrete destination for this presentation.
func (i *Interpreter) resolveGoto(g story.GotoSpec, ctx *template.Context) (string, error) {
	switch g.Kind {
	case story.GotoDirect:
		return g.SceneID, nil
	case story.GotoConditional:
		ok, err := template.EvalCondition(g.Condition, ctx)
		if err != nil {
			return "", err
		}
		if ok {
			return g.SceneID, nil
		}
		return g.ElseScene, nil
	default:
		return "", nil
	}
}

// Phase reports the current turn phase without re-rendering when a
// presentation is cached.
func (i *Interpreter) Phase() (Phase, error) {
	turn, err := i.Current()
	if err != nil {
		return PhaseRendering, err
	}
	return turn.Phase, nil
}

// Choose resolves the player selecting choice idx from the current
// presentation. Transition precedence: callback-requested > resolved
// choice goto > auto-transition target.
func (i *Interpreter) Choose(idx int) (*TurnResult, error) {
	turn, err := i.Current()
	if err != nil {
		return nil, err
	}
	if turn.Phase != PhaseAwaitingChoice {
		return nil, fmt.Errorf("no choices to make in phase %s", turn.Phase)
	}
	if idx < 0 || idx >= len(turn.Choices) {
		return nil, fmt.Errorf("choice %d out of range", idx+1)
	}
	choice := turn.Choices[idx]

	// Undo is a built-in affordance, not a state-mutating turn.
	if choice.ActionID == "undo" {
		if err := i.UndoTurn(); err != nil {
			return nil, err
		}
		next, err := i.Current()
		if err != nil {
			return nil, err
		}
		return &TurnResult{ActionText: "Previous state restored.", Next: next}, nil
	}

	i.saves.PushCheckpoint(i.gs, i.roster)

	session := &Session{Game: i.gs, Roster: i.roster}
	actionText := ""
	if choice.ActionID != "" && i.actions != nil {
		actionText, err = i.actions.Invoke(choice.ActionID, session)
		if err != nil {
			i.rollback()
			return nil, err
		}
	}

	next := session.requestedScene
	if next == "" {
		next = choice.Target
	}
	transitionText := ""
	if next == "" && turn.Continue != nil {
		next = turn.Continue.SceneID
		transitionText = turn.Continue.Text
	}

	return i.completeTurn(next, actionText, transitionText)
}

// Continue acknowledges an auto-transition on a scene without choices.
func (i *Interpreter) Continue() (*TurnResult, error) {
	turn, err := i.Current()
	if err != nil {
		return nil, err
	}
	if turn.Phase != PhaseAwaitingContinue || turn.Continue == nil {
		return nil, fmt.Errorf("nothing to continue in phase %s", turn.Phase)
	}

	i.saves.PushCheckpoint(i.gs, i.roster)
	return i.completeTurn(turn.Continue.SceneID, "", turn.Continue.Text)
}

// completeTurn applies the transition (if any) and renders the next
// presentation. A render failure rolls the whole turn back.
func (i *Interpreter) completeTurn(next, actionText, transitionText string) (*TurnResult, error) {
	if next != "" {
		if _, ok := i.doc.Scenes[next]; !ok {
			i.rollback()
			return nil, fmt.Errorf("transition to unknown scene %q", next)
		}
		i.gs.CurrentSceneID = next
		i.gs.MarkVisited(next)
	}
	i.current = nil

	nextTurn, err := i.Current()
	if err != nil {
		var rerr *template.RenderError
		if errors.As(err, &rerr) {
			i.rollback()
		}
		return nil, err
	}
	i.logger.Debug("turn resolved", "scene", i.gs.CurrentSceneID, "phase", nextTurn.Phase.String())
	return &TurnResult{
		ActionText:     actionText,
		TransitionText: transitionText,
		Next:           nextTurn,
	}, nil
}

func (i *Interpreter) rollback() {
	if err := i.saves.Undo(&i.gs, &i.roster); err != nil {
		i.logger.Error("rollback failed", "error", err)
		return
	}
	i.current = nil
}

// UndoTurn restores the checkpoint taken before the most recent turn,
// including the scene pointer. Empty history leaves state unchanged.
func (i *Interpreter) UndoTurn() error {
	if err := i.saves.Undo(&i.gs, &i.roster); err != nil {
		return err
	}
	i.current = nil
	return nil
}

// LoadSlot swaps in a saved snapshot. Loading does not touch the undo
// history.
func (i *Interpreter) LoadSlot(ctx context.Context, name string) error {
	if err := i.saves.Load(ctx, name, &i.gs, &i.roster); err != nil {
		return err
	}
	i.current = nil
	return nil
}

// SaveSlot captures the live state under a named slot.
func (i *Interpreter) SaveSlot(ctx context.Context, name string) error {
	return i.saves.Save(ctx, name, i.gs, i.roster)
}

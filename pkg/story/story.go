// Package story defines the immutable parsed representation of a story:
// metadata, characters, scenes, and the names of externally-registered
// actions and descriptors.
package story

import (
	"fmt"
	"regexp"
	"strings"
)

// Document is the fully parsed story. It is held immutable for the life of
// a session; the interpreter reads it but never writes.
type Document struct {
	Title        string
	Author       string
	Version      string
	StartSceneID string

	Characters map[string]*CharacterTemplate
	Scenes     map[string]*Scene

	// Action ids referenced by choices. Bodies are registered externally.
	RegisteredActionIDs map[string]bool
}

// CharacterTemplate is the parsed character block: base attributes from an
// optional template file merged with the block's own overrides.
type CharacterTemplate struct {
	Name          string
	IsPlayer      bool
	Attributes    map[string]any
	Inventory     []string
	Relationships map[string]float64
}

// GotoKind discriminates GotoSpec.
type GotoKind int

const (
	GotoNone GotoKind = iota
	GotoDirect
	GotoConditional
)

// GotoSpec is a choice destination: absent, a fixed scene, or a branch on a
// condition with optional else target.
type GotoSpec struct {
	Kind      GotoKind
	SceneID   string // Direct target, or Conditional then-branch
	Condition string // Conditional only, raw expression text
	ElseScene string // Conditional else-branch, empty = stay
}

// Choice is one player-selectable option on a scene.
type Choice struct {
	TextTemplate string
	ActionID     string
	Goto         GotoSpec

	// Visibility guard; empty means always visible.
	Condition string
}

// AutoTransition is a parser-level `@goto:` found at scene top level.
type AutoTransition struct {
	SceneID string
	Text    string
}

// Scene is one node of the story graph.
type Scene struct {
	ID         string
	Title      string
	RawContent string
	Choices    []Choice
}

// IsEnding reports whether the scene terminates the story: no choices and
// no auto-transition directive anywhere in its content.
func (s *Scene) IsEnding() bool {
	return len(s.Choices) == 0 && len(gotoDirectiveRe.FindStringSubmatch(s.RawContent)) == 0
}

var gotoDirectiveRe = regexp.MustCompile(`(?m)^\s*@goto:(\w+)(?:\s+(.*))?$`)

// GotoTargets returns every `@goto:` target appearing in raw scene content,
// including those inside conditional branches.
func (s *Scene) GotoTargets() []string {
	var targets []string
	for _, m := range gotoDirectiveRe.FindAllStringSubmatch(s.RawContent, -1) {
		targets = append(targets, m[1])
	}
	return targets
}

// Validate checks the document's structural invariants: the start scene
// exists and every statically declared goto target resolves. Stories fail
// here at load time, never at a transition.
func (d *Document) Validate() error {
	var problems []string

	if d.StartSceneID == "" {
		problems = append(problems, "no start scene declared")
	} else if _, ok := d.Scenes[d.StartSceneID]; !ok {
		problems = append(problems, fmt.Sprintf("start scene %q not found", d.StartSceneID))
	}

	for id, scene := range d.Scenes {
		for _, target := range scene.GotoTargets() {
			if _, ok := d.Scenes[target]; !ok {
				problems = append(problems, fmt.Sprintf("scene %q: @goto target %q not found", id, target))
			}
		}
		for i, choice := range scene.Choices {
			switch choice.Goto.Kind {
			case GotoDirect:
				if _, ok := d.Scenes[choice.Goto.SceneID]; !ok {
					problems = append(problems, fmt.Sprintf("scene %q choice %d: goto target %q not found", id, i+1, choice.Goto.SceneID))
				}
			case GotoConditional:
				if _, ok := d.Scenes[choice.Goto.SceneID]; !ok {
					problems = append(problems, fmt.Sprintf("scene %q choice %d: goto target %q not found", id, i+1, choice.Goto.SceneID))
				}
				if choice.Goto.ElseScene != "" {
					if _, ok := d.Scenes[choice.Goto.ElseScene]; !ok {
						problems = append(problems, fmt.Sprintf("scene %q choice %d: else goto target %q not found", id, i+1, choice.Goto.ElseScene))
					}
				}
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid story: %s", strings.Join(problems, "; "))
	}
	return nil
}

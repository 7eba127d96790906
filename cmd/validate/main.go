package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tadventure/engine/internal/config"
	"github.com/tadventure/engine/internal/logger"
	"github.com/tadventure/engine/pkg/parser"
	"github.com/tadventure/engine/pkg/story"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <story.tadv>\n", os.Args[0])
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.Setup(cfg)

	filename := os.Args[1]
	validator := &StoryValidator{}

	p := parser.New(cfg.TemplatesDir, log)
	if err := validator.validateFile(p, filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Story file is valid!")
}

type StoryValidator struct {
	errors []string
}

func (v *StoryValidator) validateFile(p *parser.Parser, filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".tadv") {
		return fmt.Errorf("story file must have .tadv extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".tadv")
	if !isValidStoryFilename(nameWithoutExt) {
		return fmt.Errorf("story filename '%s' must be lowercase snake_case (e.g., my_story.tadv, not my-story.tadv or MyStory.tadv)", baseName)
	}

	v.errors = nil

	// Grammar, imports, and goto-target checks happen in the parser.
	doc, err := p.Parse(filename)
	if err != nil {
		return err
	}

	v.validateDocument(doc)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

func (v *StoryValidator) validateDocument(doc *story.Document) {
	v.validateIDFormat("start scene", doc.StartSceneID)

	for sceneID, scene := range doc.Scenes {
		v.validateIDFormat("scene ID", sceneID)
		v.validateScene(scene, doc)
	}

	// Scenes nothing points at are almost always authoring mistakes.
	reachable := map[string]bool{doc.StartSceneID: true}
	for _, scene := range doc.Scenes {
		for _, target := range scene.GotoTargets() {
			reachable[target] = true
		}
		for _, c := range scene.Choices {
			if c.Goto.Kind != story.GotoNone {
				reachable[c.Goto.SceneID] = true
				if c.Goto.ElseScene != "" {
					reachable[c.Goto.ElseScene] = true
				}
			}
		}
	}
	for sceneID := range doc.Scenes {
		if !reachable[sceneID] {
			v.addError(fmt.Sprintf("scene '%s' is unreachable from any goto or choice", sceneID))
		}
	}
}

func (v *StoryValidator) validateScene(scene *story.Scene, doc *story.Document) {
	if scene.IsEnding() {
		return
	}
	for _, c := range scene.Choices {
		if c.ActionID != "" {
			v.validateIDFormat(fmt.Sprintf("action in scene %s", scene.ID), c.ActionID)
		}
	}
}

func (v *StoryValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *StoryValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidStoryFilename(name string) bool {
	// Allow 'x.' prefix for experimental stories
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}

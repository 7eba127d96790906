// Package parser turns .tadv story files (and their .tscene/.tchar imports)
// into a validated story.Document.
package parser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tadventure/engine/pkg/story"
)

// Error is a fatal parse error carrying its source position. Any Error
// aborts loading; there is no partial story.
type Error struct {
	File string
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

func errorf(file string, line int, format string, args ...any) *Error {
	return &Error{File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Parser loads story documents. TemplatesDir is where `Name@file.tchar`
// character templates are resolved; empty means alongside the story file.
type Parser struct {
	TemplatesDir string
	logger       *slog.Logger
}

func New(templatesDir string, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{TemplatesDir: templatesDir, logger: logger}
}

// Parse reads the root story file, resolves imports recursively, and
// returns a validated Document.
func (p *Parser) Parse(rootPath string) (*story.Document, error) {
	doc := &story.Document{
		Characters:          make(map[string]*story.CharacterTemplate),
		Scenes:              make(map[string]*story.Scene),
		RegisteredActionIDs: make(map[string]bool),
	}
	st := &parseState{parser: p, doc: doc, inProgress: make(map[string]bool)}
	if err := st.parseFile(rootPath); err != nil {
		return nil, err
	}
	if doc.StartSceneID == "" {
		doc.StartSceneID = "start"
	}
	if err := doc.Validate(); err != nil {
		return nil, &Error{File: rootPath, Msg: err.Error()}
	}
	p.logger.Debug("story parsed",
		"file", rootPath,
		"title", doc.Title,
		"scenes", len(doc.Scenes),
		"characters", len(doc.Characters))
	return doc, nil
}

type parseState struct {
	parser     *Parser
	doc        *story.Document
	inProgress map[string]bool // absolute paths on the current import chain
}

func (st *parseState) parseFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errorf(path, 0, "resolve path: %v", err)
	}
	if st.inProgress[abs] {
		return errorf(path, 0, "import cycle detected")
	}
	st.inProgress[abs] = true
	defer delete(st.inProgress, abs)

	f, err := os.Open(abs)
	if err != nil {
		return errorf(path, 0, "open story file: %v", err)
	}
	defer f.Close()

	fp := &fileParser{
		state: st,
		file:  path,
		dir:   filepath.Dir(abs),
	}
	// .tscene files hold bare scene definitions, no section markers needed.
	if strings.EqualFold(filepath.Ext(abs), ".tscene") {
		fp.section = "scene"
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if err := fp.consume(line, strings.TrimRight(sc.Text(), " \t\r")); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errorf(path, line, "read story file: %v", err)
	}
	return fp.finish()
}

var (
	sectionRe     = regexp.MustCompile(`^===\s*(\w+)\s*===$`)
	sceneHeaderRe = regexp.MustCompile(`^---\s*(\w+)\s*:\s*(.*?)\s*---$`)
	charDeclRe    = regexp.MustCompile(`^-\s*(.+?)\s*$`)
	branchGotoRe  = regexp.MustCompile(`^goto:(\w+)\s+if\s+(.+?)\s+else\s+goto:(\w+)$`)
	directGotoRe  = regexp.MustCompile(`goto:(\w+)`)
)

// fileParser holds the per-file line-machine state.
type fileParser struct {
	state   *parseState
	file    string
	dir     string
	section string

	// scene section state
	scene      *story.Scene
	sceneLine  int
	contentBuf []string

	// characters section state
	char *story.CharacterTemplate
}

func (fp *fileParser) consume(line int, text string) error {
	trimmed := strings.TrimSpace(text)

	// Comments never reach any section handler.
	if strings.HasPrefix(trimmed, "#") {
		return nil
	}

	if strings.HasPrefix(trimmed, "@import") {
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "@import"))
		if rest == "" {
			return errorf(fp.file, line, "@import requires a path")
		}
		return fp.handleImport(line, rest)
	}

	if m := sectionRe.FindStringSubmatch(trimmed); m != nil {
		if err := fp.closeScene(); err != nil {
			return err
		}
		fp.closeCharacter()
		fp.section = strings.ToLower(m[1])
		return nil
	}

	switch fp.section {
	case "metadata":
		return fp.consumeMetadata(trimmed)
	case "characters":
		return fp.consumeCharacter(line, text)
	case "functions":
		// Author callback bodies are host-language code registered
		// externally; the parser carries only names, which arrive via
		// choice action ids.
		return nil
	case "scene":
		return fp.consumeScene(line, text)
	default:
		if trimmed == "" {
			return nil
		}
		return errorf(fp.file, line, "content outside any === SECTION ===: %q", trimmed)
	}
}

func (fp *fileParser) finish() error {
	if err := fp.closeScene(); err != nil {
		return err
	}
	fp.closeCharacter()
	return nil
}

func (fp *fileParser) handleImport(line int, rel string) error {
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(fp.dir, rel)
	}
	if _, err := os.Stat(path); err != nil {
		return errorf(fp.file, line, "import %q: %v", rel, err)
	}
	return fp.state.parseFile(path)
}

func (fp *fileParser) consumeMetadata(trimmed string) error {
	if trimmed == "" {
		return nil
	}
	key, value, ok := strings.Cut(trimmed, ":")
	if !ok {
		return nil
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	doc := fp.state.doc
	switch key {
	case "title":
		doc.Title = value
	case "author":
		doc.Author = value
	case "version":
		doc.Version = value
	case "start":
		doc.StartSceneID = value
	}
	return nil
}

// consumeCharacter handles `- Name[@template]` declarations and their
// indented `key: value` attribute lines. A blank line, a new declaration,
// or a section marker closes the open block.
func (fp *fileParser) consumeCharacter(line int, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		fp.closeCharacter()
		return nil
	}

	if strings.HasPrefix(trimmed, "-") {
		fp.closeCharacter()
		m := charDeclRe.FindStringSubmatch(trimmed)
		if m == nil {
			return errorf(fp.file, line, "character declaration missing a name")
		}
		decl := strings.TrimSpace(m[1])
		name := decl
		templateFile := ""
		if n, tmpl, ok := strings.Cut(decl, "@"); ok {
			name = strings.TrimSpace(n)
			templateFile = strings.TrimSpace(tmpl)
		}
		if name == "" {
			return errorf(fp.file, line, "character declaration missing a name")
		}
		ct := &story.CharacterTemplate{Name: name, Attributes: make(map[string]any)}
		if templateFile != "" {
			if err := fp.loadCharTemplate(line, templateFile, ct); err != nil {
				return err
			}
		}
		fp.char = ct
		return nil
	}

	if fp.char == nil {
		return errorf(fp.file, line, "character attribute outside a character block: %q", trimmed)
	}
	key, value, ok := strings.Cut(trimmed, ":")
	if !ok {
		return errorf(fp.file, line, "malformed character attribute: %q", trimmed)
	}
	key = strings.ToLower(strings.TrimSpace(key))
	fp.char.Attributes[key] = convertScalar(strings.TrimSpace(value))
	if key == "is_player" {
		if b, ok := fp.char.Attributes[key].(bool); ok {
			fp.char.IsPlayer = b
		}
	}
	return nil
}

func (fp *fileParser) closeCharacter() {
	if fp.char == nil {
		return
	}
	fp.state.doc.Characters[fp.char.Name] = fp.char
	fp.char = nil
}

// tcharFile is the JSON shape of a .tchar character template.
type tcharFile struct {
	Stats         map[string]any     `json:"stats"`
	Inventory     []string           `json:"inventory"`
	Relationships map[string]float64 `json:"relationships"`
}

// loadCharTemplate reads a .tchar file and seeds the character's base
// attributes. Block-level lines applied afterwards override on collision.
func (fp *fileParser) loadCharTemplate(line int, file string, ct *story.CharacterTemplate) error {
	dir := fp.state.parser.TemplatesDir
	if dir == "" {
		dir = fp.dir
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, file)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errorf(fp.file, line, "character template %q: %v", file, err)
	}
	var tmpl tcharFile
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return errorf(fp.file, line, "character template %q: %v", file, err)
	}
	for k, v := range tmpl.Stats {
		ct.Attributes[strings.ToLower(k)] = v
	}
	ct.Inventory = append([]string(nil), tmpl.Inventory...)
	if tmpl.Relationships != nil {
		ct.Relationships = make(map[string]float64, len(tmpl.Relationships))
		for k, v := range tmpl.Relationships {
			ct.Relationships[k] = v
		}
	}
	return nil
}

func (fp *fileParser) consumeScene(line int, text string) error {
	trimmed := strings.TrimSpace(text)

	if m := sceneHeaderRe.FindStringSubmatch(trimmed); m != nil {
		if err := fp.closeScene(); err != nil {
			return err
		}
		id, title := m[1], m[2]
		if _, exists := fp.state.doc.Scenes[id]; exists {
			return errorf(fp.file, line, "duplicate scene id %q", id)
		}
		fp.scene = &story.Scene{ID: id, Title: title}
		fp.sceneLine = line
		fp.contentBuf = fp.contentBuf[:0]
		return nil
	}

	if fp.scene == nil {
		if trimmed == "" {
			return nil
		}
		return errorf(fp.file, line, "scene content before any scene header: %q", trimmed)
	}

	if strings.HasPrefix(trimmed, "*") {
		choice, err := parseChoiceLine(fp.file, line, trimmed)
		if err != nil {
			return err
		}
		fp.scene.Choices = append(fp.scene.Choices, *choice)
		if choice.ActionID != "" {
			fp.state.doc.RegisteredActionIDs[choice.ActionID] = true
		}
		return nil
	}

	// @goto: lines stay in raw content for the renderer; targets are
	// checked in Document.Validate.
	fp.contentBuf = append(fp.contentBuf, text)
	return nil
}

func (fp *fileParser) closeScene() error {
	if fp.scene == nil {
		return nil
	}
	// An @import inside the block may have registered this id already;
	// the header-time check alone cannot catch that.
	if _, exists := fp.state.doc.Scenes[fp.scene.ID]; exists {
		return errorf(fp.file, fp.sceneLine, "duplicate scene id %q", fp.scene.ID)
	}
	fp.scene.RawContent = strings.TrimRight(strings.Join(fp.contentBuf, "\n"), "\n")
	fp.state.doc.Scenes[fp.scene.ID] = fp.scene
	fp.scene = nil
	fp.contentBuf = nil
	return nil
}

// parseChoiceLine parses one `* text -> ...` line. Two legal shapes after
// the arrow:
//
//	action_id? goto:scene? if cond?          visibility-guarded choice
//	goto:a if cond else goto:b               branching destination
//
// The `else` immediately after a goto target selects branching parsing.
func parseChoiceLine(file string, line int, trimmed string) (*story.Choice, error) {
	body := strings.TrimSpace(strings.TrimPrefix(trimmed, "*"))
	if body == "" {
		return nil, errorf(file, line, "empty choice")
	}

	text, actionData, hasArrow := strings.Cut(body, "->")
	if !hasArrow {
		return &story.Choice{TextTemplate: strings.TrimSpace(body)}, nil
	}
	text = strings.TrimSpace(text)
	actionData = strings.TrimSpace(actionData)
	if text == "" {
		return nil, errorf(file, line, "choice has no text before ->")
	}

	choice := &story.Choice{TextTemplate: text}

	if m := branchGotoRe.FindStringSubmatch(actionData); m != nil {
		choice.Goto = story.GotoSpec{
			Kind:      story.GotoConditional,
			SceneID:   m[1],
			Condition: strings.TrimSpace(m[2]),
			ElseScene: m[3],
		}
		return choice, nil
	}

	// Visibility-guard shape: split off a trailing `if cond` first so the
	// condition text is never mistaken for action-id words.
	rest := actionData
	if idx := findKeyword(rest, "if"); idx >= 0 {
		choice.Condition = strings.TrimSpace(rest[idx+2:])
		if choice.Condition == "" {
			return nil, errorf(file, line, "choice `if` has no condition")
		}
		rest = strings.TrimSpace(rest[:idx])
	}

	if m := directGotoRe.FindStringSubmatch(rest); m != nil {
		choice.Goto = story.GotoSpec{Kind: story.GotoDirect, SceneID: m[1]}
		rest = strings.TrimSpace(strings.Replace(rest, m[0], "", 1))
	}

	if rest != "" {
		if strings.Contains(rest, ":") {
			return nil, errorf(file, line, "malformed choice action %q", rest)
		}
		choice.ActionID = rest
	}
	return choice, nil
}

// findKeyword locates a whole-word keyword at top level of the action data.
func findKeyword(s, kw string) int {
	fields := strings.Fields(s)
	pos := 0
	for _, f := range fields {
		idx := strings.Index(s[pos:], f)
		start := pos + idx
		if f == kw {
			return start
		}
		pos = start + len(f)
	}
	return -1
}

// convertScalar maps an attribute literal to float64, int, bool, or string,
// matching the story format's loose typing.
func convertScalar(s string) any {
	if s == "" {
		return ""
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tadventure/engine/internal/config"
	"github.com/tadventure/engine/internal/logger"
	"github.com/tadventure/engine/internal/storage"
	"github.com/tadventure/engine/pkg/engine"
	"github.com/tadventure/engine/pkg/parser"
	"github.com/tadventure/engine/pkg/save"
)

const PlaceHolderText = "Choice number or command (help)..."

// entry kinds for the transcript, reformatted on every resize.
const (
	entryScene = iota
	entryPlayer
	entrySystem
	entryError
)

type entry struct {
	kind int
	text string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config *config.Config
	logger *slog.Logger

	interp       *engine.Interpreter
	gameViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	transcript   []entry
	ready        bool
	width        int
	height       int
	err          error

	// Story selection state
	showStoryModal bool
	stories        []string
	storyMap       map[string]string
	selectedStory  int

	// Quit confirmation state
	showQuitModal bool
}

type storyStartedMsg struct {
	interp *engine.Interpreter
	turn   *engine.Turn
	err    error
}

var (
	gamePanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	sceneTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	sceneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

var labelCaser = cases.Title(language.English)

func NewConsoleUI(cfg *config.Config, log *slog.Logger, stories []string, storyMap map[string]string) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	gameVp := viewport.New(50, 20)
	gameVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:         cfg,
		logger:         log,
		textarea:       ta,
		gameViewport:   gameVp,
		metaViewport:   metaVp,
		ready:          false,
		showStoryModal: true,
		stories:        stories,
		storyMap:       storyMap,
		selectedStory:  0,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return nil
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showStoryModal {
		return m.updateStoryModal(msg)
	}

	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.gameViewport, vpCmd = m.gameViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.writeGameContent()
		m.writeMetadata()
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			return m.handleInput(input)
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.gameViewport, vpCmd = m.gameViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) layout() {
	gameWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - gameWidth - 6

	m.gameViewport.Width = gameWidth - 2
	m.gameViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(gameWidth - 4)
}

// handleInput resolves one line of player input against the interpreter.
func (m ConsoleUI) handleInput(input string) (tea.Model, tea.Cmd) {
	if input != "" {
		m.transcript = append(m.transcript, entry{entryPlayer, input})
	}

	turn, err := m.interp.Current()
	if err != nil {
		m.transcript = append(m.transcript, entry{entryError, err.Error()})
		m.writeGameContent()
		return m, nil
	}

	lower := strings.ToLower(input)
	switch {
	case lower == "quit" || lower == "exit":
		m.showQuitModal = true
		return m, nil

	case engine.IsCommand(input):
		out := m.interp.Command(context.Background(), input)
		m.transcript = append(m.transcript, entry{entrySystem, out})
		// load and undo both move the scene pointer; re-present it.
		if cur, err := m.interp.Current(); err == nil && cur.SceneID != turn.SceneID {
			m.appendTurn(cur)
		}

	case input == "" && turn.Phase == engine.PhaseAwaitingContinue:
		res, err := m.interp.Continue()
		if err != nil {
			m.transcript = append(m.transcript, entry{entryError, err.Error()})
			break
		}
		m.appendResult(res)

	default:
		var n int
		if _, err := fmt.Sscanf(input, "%d", &n); err != nil || n < 1 || n > len(turn.Choices) {
			m.transcript = append(m.transcript, entry{entrySystem,
				fmt.Sprintf("Enter a choice from 1 to %d, or 'help' for commands.", len(turn.Choices))})
			break
		}
		res, err := m.interp.Choose(n - 1)
		if err != nil {
			m.transcript = append(m.transcript, entry{entryError, err.Error()})
			break
		}
		m.appendResult(res)
	}

	m.writeGameContent()
	m.writeMetadata()
	return m, nil
}

func (m *ConsoleUI) appendResult(res *engine.TurnResult) {
	if res.ActionText != "" {
		m.transcript = append(m.transcript, entry{entrySystem, res.ActionText})
	}
	if res.TransitionText != "" {
		m.transcript = append(m.transcript, entry{entrySystem, res.TransitionText})
	}
	m.appendTurn(res.Next)
}

func (m *ConsoleUI) appendTurn(turn *engine.Turn) {
	var b strings.Builder
	if turn.Title != "" {
		b.WriteString(turn.Title + "\n\n")
	}
	b.WriteString(turn.Text)

	switch turn.Phase {
	case engine.PhaseAwaitingChoice:
		b.WriteString("\n")
		for i, c := range turn.Choices {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, c.Text))
		}
	case engine.PhaseAwaitingContinue:
		b.WriteString("\n\n(Press Enter to continue)")
	case engine.PhaseEnding:
		b.WriteString("\n\nTHE END")
	}

	m.transcript = append(m.transcript, entry{entryScene, b.String()})
}

// writeGameContent rebuilds the transcript for the current viewport width.
func (m *ConsoleUI) writeGameContent() {
	gameWidth := m.gameViewport.Width - 6

	var content strings.Builder
	content.WriteString(titleStyle.Render("TEXT ADVENTURE") + "\n\n")
	content.WriteString("Pick numbered choices to play. Type 'help' for commands.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(gameWidth-6, 10))) + "\n\n")

	for _, e := range m.transcript {
		switch e.kind {
		case entryScene:
			// Style the title line, wrap the body.
			text := e.text
			if idx := strings.Index(text, "\n\n"); idx > 0 {
				content.WriteString(sceneTitleStyle.Render(text[:idx]) + "\n\n")
				text = text[idx+2:]
			}
			content.WriteString(sceneStyle.Render(wordwrap.String(text, gameWidth)) + "\n\n")
		case entryPlayer:
			content.WriteString(userStyle.Render("> ") + wordwrap.String(e.text, gameWidth-2) + "\n\n")
		case entrySystem:
			content.WriteString(wordwrap.String(e.text, gameWidth) + "\n\n")
		case entryError:
			content.WriteString(errorStyle.Render("Error: "+e.text) + "\n\n")
		}
	}

	m.gameViewport.SetContent(content.String())
	m.gameViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetadata() {
	if m.interp == nil {
		return
	}
	gs := m.interp.GameState()
	player := m.interp.Roster().Player()

	var content strings.Builder
	content.WriteString(titleStyle.Render("STATUS") + "\n\n")

	content.WriteString(fmt.Sprintf("Day %d, %s\n", gs.Day, labelCaser.String(string(gs.TimeOfDay))))
	content.WriteString("Scene: " + gs.CurrentSceneID + "\n\n")

	if player != nil && len(player.Stats) > 0 {
		content.WriteString(labelCaser.String(player.Name) + ":\n")
		names := make([]string, 0, len(player.Stats))
		for name := range player.Stats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			label := labelCaser.String(strings.ReplaceAll(name, "_", " "))
			content.WriteString(fmt.Sprintf("• %s: %.0f\n", label, player.Stats[name]))
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• help: All commands\n")
	content.WriteString("• undo: Undo last turn\n")
	content.WriteString("• save/load: Slots\n")
	content.WriteString("• Ctrl+C: Quit\n")

	m.metaViewport.SetContent(content.String())
}

// startStory parses the selected story and builds a playable session.
func (m ConsoleUI) startStory(name string) tea.Cmd {
	path := m.storyMap[name]
	cfg := m.config
	log := logger.WithStory(m.logger, name)

	return func() tea.Msg {
		p := parser.New(cfg.TemplatesDir, log)
		doc, err := p.Parse(path)
		if err != nil {
			logger.WithError(log, err).Error("story failed to parse")
			return storyStartedMsg{err: err}
		}

		var store save.Store
		if cfg.RedisAddr != "" {
			store = storage.NewRedisStore(cfg.RedisAddr, name, log)
		} else {
			fs, err := storage.NewFileStore(filepath.Join(cfg.SavesDir, name))
			if err != nil {
				logger.WithError(log, err).Error("failed to open save store")
				return storyStartedMsg{err: err}
			}
			store = fs
		}

		saves := save.NewManager(doc.Title, store, log)
		interp := engine.New(doc, engine.NewRegistry(), saves, nil, log)

		turn, err := interp.Current()
		if err != nil {
			logger.WithError(log, err).Error("opening scene failed to render")
			return storyStartedMsg{err: err}
		}
		return storyStartedMsg{interp: interp, turn: turn}
	}
}

func (m ConsoleUI) updateStoryModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case storyStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.interp = msg.interp
		m.showStoryModal = false
		if m.width > 0 && m.height > 0 {
			m.layout()
		}
		m.appendTurn(msg.turn)
		m.writeGameContent()
		m.writeMetadata()
		m.textarea.Focus()
		m.ready = true
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedStory > 0 {
				m.selectedStory--
			}
		case tea.KeyDown:
			if m.selectedStory < len(m.stories)-1 {
				m.selectedStory++
			}
		case tea.KeyEnter:
			if len(m.stories) > 0 {
				return m, m.startStory(m.stories[m.selectedStory])
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.showStoryModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit your adventure?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderStoryModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	if m.err != nil {
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load story: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	} else {
		content.WriteString(modalTitleStyle.Render("Select a Story"))
		content.WriteString("\n\n")

		for i, name := range m.stories {
			if i == m.selectedStory {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", name)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", name)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showStoryModal {
		return m.renderStoryModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	gameWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - gameWidth - 6

	gamePanel := gamePanelStyle.Width(gameWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.gameViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(gameWidth-4, 10))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, gamePanel, metaPanel)
}

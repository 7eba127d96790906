package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tadventure/engine/internal/config"
	"github.com/tadventure/engine/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	names, storyMap, err := listStories(cfg.StoriesDir)
	if err != nil || len(names) == 0 {
		fmt.Fprintf(os.Stderr, "No stories found in %s: %v\n", cfg.StoriesDir, err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, log, names, storyMap),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// listStories walks the stories directory for .tadv files and returns
// display names in sorted order plus a name -> path map.
func listStories(dir string) ([]string, map[string]string, error) {
	storyMap := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".tadv" {
			return nil
		}
		name := strings.TrimSuffix(filepath.Base(path), ".tadv")
		storyMap[name] = path
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk stories directory: %w", err)
	}

	var names []string
	for name := range storyMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, storyMap, nil
}

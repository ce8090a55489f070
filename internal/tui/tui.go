package tui

import (
	"context"
	"fmt"
	"os"

	"ccdash/config"
	"ccdash/internal/watcher"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
)

// Run starts the TUI over manager, refreshing when the directory changes.
func Run(ctx context.Context, manager *config.Manager) error {
	if !isTerminal() {
		return fmt.Errorf("ccdash TUI requires a terminal. Use subcommands for non-interactive mode")
	}

	var changes <-chan int64
	w := watcher.New(manager.Dir())
	if err := w.Start(ctx); err != nil {
		log.WithError(err).Debug("directory watcher unavailable, auto-refresh disabled")
	} else {
		defer w.Close()
		ch, unsubscribe := w.Subscribe()
		defer unsubscribe()
		changes = ch
	}

	m := NewModel(manager, changes)

	opts := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	}
	if os.Getenv("TERM") != "" {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	p := tea.NewProgram(m, opts...)
	_, err := p.Run()
	return err
}

// isTerminal checks if stdin is a terminal
func isTerminal() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

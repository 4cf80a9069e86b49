package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/aerox/internal/player"
	"github.com/desertthunder/aerox/internal/shared"
	"github.com/desertthunder/aerox/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Logs go to a file so they don't interfere with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	notifier := player.NewChannelNotifier(16)
	s, err := r.openSession(ctx, notifier)
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		return fmt.Errorf("%w: run `aerox auth login` first", shared.ErrNotAuthenticated)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("failed to start playback polling: %w", err)
	}

	model := ui.NewModel(ctx, ui.SessionOptions(s, notifier.C(), r.config.Player, fileLogger))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

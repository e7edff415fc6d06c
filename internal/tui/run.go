package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// screen is a model with background work that outlives Update.
type screen interface {
	tea.Model
	Close()
	Wait()
}

// RunLive opens the live analysis screen and blocks until it exits.
func RunLive(ctx context.Context, opts ...Option) error {
	sender := &ProgramSender{}
	m, err := NewLiveModel(ctx, sender, opts...)
	if err != nil {
		return err
	}
	return run(ctx, sender, m, buildConfig(opts))
}

// RunTestnet runs one simulation with narrated playback and blocks until the
// screen exits.
func RunTestnet(ctx context.Context, opts ...Option) error {
	sender := &ProgramSender{}
	m, err := NewTestnetModel(ctx, sender, opts...)
	if err != nil {
		return err
	}
	return run(ctx, sender, m, buildConfig(opts))
}

// RunDashboard opens the dashboard screen and blocks until it exits.
func RunDashboard(ctx context.Context, opts ...Option) error {
	sender := &ProgramSender{}
	m, err := NewDashboardModel(ctx, sender, opts...)
	if err != nil {
		return err
	}
	return run(ctx, sender, m, buildConfig(opts))
}

func run(ctx context.Context, sender *ProgramSender, s screen, cfg Config) error {
	var m tea.Model = s
	if cfg.RecordDir != "" {
		rec, err := NewRecorder(cfg.RecordDir)
		if err != nil {
			return err
		}
		defer rec.Close()
		cfg.Logger.Info("Recording TUI session", "dir", rec.Dir())
		m = rec.Wrap(s)
	}

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	sender.Attach(p)

	_, err := p.Run()

	// Close is idempotent; the screen may already have closed itself on quit.
	s.Close()
	s.Wait()

	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodtunes/internal/capture"
	"github.com/desertthunder/moodtunes/internal/player"
	"github.com/desertthunder/moodtunes/internal/shared"
	"github.com/desertthunder/moodtunes/internal/tasks"
	"github.com/desertthunder/moodtunes/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/moodtunes-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	st, err := r.openStores()
	if err != nil {
		return err
	}
	defer st.Close()

	gate, err := r.restoreGate(ctx, st)
	if err != nil {
		return err
	}

	deps := ui.Deps{
		Capture: capture.NewSession(r.newCamera(), capture.Options{
			Width:  r.config.Capture.Width,
			Height: r.config.Capture.Height,
			Logger: shared.WithLogger(r.logger, "component", "capture"),
		}),
		Recommender: tasks.NewRecommender(r.backend, tasks.RecommenderOpts{
			History: st.detections.Recorder(gate.CurrentID),
			Logger:  r.logger,
		}),
		Player:      player.NewSession(r.newOutput(), shared.WithLogger(r.logger, "component", "player")),
		Gate:        gate,
		RequireUser: r.config.Identity.Required,
		SignIn: func(ctx context.Context) error {
			return r.signIn(ctx, gate)
		},
		Logger: r.logger,
	}

	model := ui.NewModel(ctx, deps)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

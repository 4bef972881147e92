package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vaultx/vaultx-term/app"
	"github.com/vaultx/vaultx-term/style"
	"github.com/vaultx/vaultx-term/tokens"
)

func newTUICmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive client (the default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, e)
		},
	}
}

func runTUI(cmd *cobra.Command, e *env) error {
	if !style.SetTheme(e.cfg.Theme) {
		if lipgloss.HasDarkBackground() {
			style.SetTheme("dark")
		} else {
			style.SetTheme("light")
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := app.New(ctx, e.api, app.Options{
		Version:       e.version,
		BackendURL:    e.cfg.BackendURL,
		HistoryBudget: e.cfg.HistoryTokenBudget,
		Counter:       tokens.NewTiktoken(e.log),
		Log:           e.log,
	})
	e.log.Info("tui starting", zap.String("backend", e.cfg.BackendURL))

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return err
	}
	return nil
}

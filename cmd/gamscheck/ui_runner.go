package main

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"gamscheck/internal/check"
	"gamscheck/internal/runner"
	"gamscheck/internal/ui"
)

type checkOutcome struct {
	reports []check.Report
	err     error
}

// runChecksWithUI runs the checks while a Bubble Tea view renders session
// events on stderr, keeping stdout free for the report.
func runChecksWithUI(ctx context.Context, title string, files []string, run func(ctx context.Context, progress runner.ProgressSink) ([]check.Report, error)) ([]check.Report, error) {
	events := make(chan runner.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		reports, err := run(ctx, runner.ChannelSink{Ch: events})
		outcomeCh <- checkOutcome{reports: reports, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	final, uiErr := program.Run()

	// дочитываем события, иначе ChannelSink заблокирует сессии
	go func() {
		for range events {
		}
	}()
	if uiErr != nil || !ui.Finished(final) {
		cancel()
	}

	outcome := <-outcomeCh
	if outcome.err != nil {
		return outcome.reports, outcome.err
	}
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return outcome.reports, uiErr
	}
	return outcome.reports, nil
}

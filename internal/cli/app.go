package cli

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/adibhanna/focusflow/internal/storage"
	"github.com/adibhanna/focusflow/internal/timer"
	"github.com/adibhanna/focusflow/internal/ui/settings"
	timerui "github.com/adibhanna/focusflow/internal/ui/timer"
)

// runApp alternates between the timer screen and the settings form until the
// user quits. One engine lives across both so a running countdown keeps going
// while settings are open.
func runApp(store *storage.Storage, out io.Writer) error {
	if store.IsFirstTime() {
		fmt.Fprintln(out, "*** Welcome to Focus Flow! ***")
		fmt.Fprintln(out, "Let's set up your preferences...")

		if err := runSettings(store); err != nil {
			return err
		}
		fmt.Fprintln(out, "[OK] Setup complete! Let's start focusing!")
	}

	config, err := store.GetConfig()
	if err != nil {
		return err
	}
	eng := timer.New(config.PhaseLengths())

	for {
		timerModel, err := timerui.New(eng, store)
		if err != nil {
			return err
		}

		p := tea.NewProgram(timerModel, tea.WithAltScreen())
		finalModel, err := p.Run()
		if err != nil {
			return err
		}

		timerModel = finalModel.(timerui.Model)
		if timerModel.ShouldQuit() {
			logrus.WithField("usage", eng.Usage()).Info("timer closed")
			fmt.Fprintf(out, ">>> See you next session! Time completed this run: %s\n", timer.FormatUsage(eng.Usage()))
			return nil
		}

		if timerModel.ShouldOpenSettings() {
			if err := runSettings(store); err != nil {
				return err
			}
		}
	}
}

func runSettings(store *storage.Storage) error {
	settingsModel, err := settings.New(store)
	if err != nil {
		return err
	}

	p := tea.NewProgram(settingsModel, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result := finalModel.(settings.Model)
	switch {
	case result.WasReset():
		logrus.Info("settings reset to defaults")
	case result.Saved():
		logrus.Info("settings saved")
	}
	return nil
}

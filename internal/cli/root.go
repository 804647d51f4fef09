// Package cli defines the cobra commands for the focusflow binary. Running it
// without a subcommand opens the timer.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adibhanna/focusflow/internal/logging"
	"github.com/adibhanna/focusflow/internal/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	logLevel string
	dataDir  string
)

// isTTY reports whether stdout is a terminal. Tests override it.
var isTTY = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var rootCmd = &cobra.Command{
	Use:   "focusflow",
	Short: "Pomodoro focus timer for the terminal",
	Long: `Focus Flow runs a Pomodoro timer in your terminal: focus phases alternate
with short breaks, and every fourth focus phase earns a long break.
Completed phases are kept in ~/.focusflow for daily and weekly stats.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Without a terminal there is nothing to draw on
		if !isTTY() {
			return cmd.Help()
		}

		store, err := openStore()
		if err != nil {
			return err
		}

		logFile, err := logging.SetupFile(logLevel, store.DataDir())
		if err != nil {
			return err
		}
		defer logFile.Close()

		return runApp(store, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("focusflow version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default ~/.focusflow)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func openStore() (*storage.Storage, error) {
	if dataDir != "" {
		return storage.NewAt(dataDir)
	}
	store, err := storage.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

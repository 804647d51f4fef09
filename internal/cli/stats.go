package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsOut string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the statistics report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		report, err := store.ExportReport(time.Now())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report)
		return nil
	},
}

var statsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the statistics report to a file",
	Long: `Writes the statistics report to a timestamped text file in --out,
or in ~/Downloads (falling back to your home directory) when --out is not set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		path, err := store.SaveReport(time.Now(), statsOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[OK] Exported to %s\n", path)
		return nil
	},
}

func init() {
	statsExportCmd.Flags().StringVar(&statsOut, "out", "", "Directory to write the report to")
	statsCmd.AddCommand(statsExportCmd)
	rootCmd.AddCommand(statsCmd)
}

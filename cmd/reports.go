package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "github.com/toabey/gnat-llvm/internal/model"
)

// reportsCmd represents the reports command.
var reportsCmd = newReportsCmd()

func newReportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "Show the stored build reports",
		Long: `Render the build reports persisted in the output directory, oldest
first. Failed builds keep their compiler diagnostics; inspect the full
record in the YAML store when the table is not enough.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			reports, err := reportStore.LoadReports(m.Path(viper.GetString(outputFlagName)))
			if err != nil {
				return err
			}

			return ui.DisplayReports(reports)
		},
	}
}

func init() {
	rootCmd.AddCommand(reportsCmd)
}

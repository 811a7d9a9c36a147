package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "github.com/toabey/gnat-llvm/internal/model"
)

var buildTargetFlag string
var buildExtraFlags []string

// buildCmd represents the build command.
var buildCmd = newBuildCmd()

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build SOURCES...",
		Short: "Compile sources into a loadable module",
		Long: `Compile the given sources into a shared library named by --target and
print the artifact path. The module is not loaded; use "call" for the
full round-trip.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := parseSources(args)
			target := m.Target(buildTargetFlag)

			if err := sources.Validate(); err != nil {
				return err
			}

			if err := target.Validate(); err != nil {
				return err
			}

			workDir, err := workspaceAdapter.CreateWorkDir(target)
			if err != nil {
				return err
			}

			opts := m.BuildOptions{Flags: buildExtraFlags}

			artifact, report, err := compilerAdapter.Compile(cmd.Context(), workDir, sources, target, opts)

			if storeErr := reportStore.AppendReport(m.Path(viper.GetString(outputFlagName)), report); storeErr != nil {
				cmd.PrintErrf("warning: could not persist build report: %v\n", storeErr)
			}

			if displayErr := ui.DisplayBuildResult(report); displayErr != nil {
				return displayErr
			}

			if err != nil {
				return err
			}

			cmd.Println(artifact)

			return nil
		},
	}

	configureBuildFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func configureBuildFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&buildTargetFlag, "target", "t", "", "name of the produced module (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("target"))
	cmd.Flags().StringArrayVarP(&buildExtraFlags, "flag", "f", nil, "extra compiler flag (can be repeated)")
}

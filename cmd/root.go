// Package cmd provides the root command and CLI setup for the gnatllvm
// test harness.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/toabey/gnat-llvm/internal/adapter"
	"github.com/toabey/gnat-llvm/internal/controller"
	"github.com/toabey/gnat-llvm/internal/domain"
	m "github.com/toabey/gnat-llvm/internal/model"
)

var compilerAdapter adapter.CompilerAdapter
var workspaceAdapter adapter.WorkspaceAdapter
var loaderAdapter adapter.LoaderAdapter
var reportStore adapter.ReportStore
var harness domain.Harness
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// keepArtifactsFlag leaves working directories in place after a session ends.
var keepArtifactsFlag bool

// workspaceRootFlag overrides where per-target working directories are created.
var workspaceRootFlag string

// compilerCommandFlag overrides the configured compiler command.
var compilerCommandFlag string

// verboseFlag switches the log level to debug.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewSimpleUI(rootCmd)
	reportStore = adapter.NewReportStore()
	loaderAdapter = adapter.NewLocalLoaderAdapter()
}

const rootLongDescription = `gnatllvm is the compile-link-load-invoke harness of the GNAT-LLVM
testsuite. It drives the configured Ada compiler to produce a shared
library from a set of sources, loads the library into the current
process, binds declared entry points to their calling signatures, and
invokes them.

Declared signatures are trusted as-is: a declaration that does not match
the compiled symbol's real signature is undefined behavior at call time.`

const callLongDescription = `Build SOURCES into a shared library named by --target, load it, bind
--symbol with the declared --arg/--ret type tags, and invoke it with the
positional values given after "--".

Type tags: void, int8, uint8, int16, uint16, int32, uint32, int64,
uint64, float32, float64, pointer.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gnatllvm",
		Short: "Compile-load-invoke harness for compiler testsuites",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger("", verboseFlag)
			wireHarness()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

// wireHarness builds the harness from whatever the flags/config resolved to.
// It runs after flag parsing so overrides are already folded into viper.
func wireHarness() {
	compilerAdapter = adapter.NewLocalCompilerAdapter(
		viper.GetString(compilerCommandKey),
		viper.GetStringSlice(compilerFlagsKey),
	)
	workspaceAdapter = adapter.NewLocalWorkspaceAdapter(viper.GetString(workspaceRootKey))

	harness = domain.NewHarness(
		compilerAdapter,
		workspaceAdapter,
		loaderAdapter,
		reportStore,
		domain.Config{
			KeepArtifacts: viper.GetBool(keepArtifactsKey),
			ReportDir:     m.Path(viper.GetString(outputFlagName)),
		},
	)
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for build reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVar(&keepArtifactsFlag, keepFlagName, viper.GetBool(keepArtifactsKey), "keep working directories after a session ends (post-mortem inspection)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(keepFlagName), keepArtifactsKey)

	cmd.PersistentFlags().StringVarP(&workspaceRootFlag, workspaceFlagName, "w", viper.GetString(workspaceRootKey), "root directory for per-target working directories (default: system temp)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(workspaceFlagName), workspaceRootKey)

	cmd.PersistentFlags().StringVarP(&compilerCommandFlag, compilerFlagName, "c", viper.GetString(compilerCommandKey), "compiler command used to produce loadable modules")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(compilerFlagName), compilerCommandKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("verbose"), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parseSources(args []string) m.SourceSet {
	sources := make(m.SourceSet, 0, len(args))
	for _, arg := range args {
		sources = append(sources, m.Path(arg))
	}

	return sources
}

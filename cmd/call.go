package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	m "github.com/toabey/gnat-llvm/internal/model"
)

var callTargetFlag string
var callSymbolFlag string
var callRetFlag string
var callArgFlags []string
var callExtraFlags []string

// callCmd represents the call command.
var callCmd = newCallCmd()

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call SOURCES... [-- VALUES...]",
		Short: "Build, load, bind one symbol and invoke it",
		Long:  callLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceArgs := args
			valueArgs := []string{}

			if at := cmd.ArgsLenAtDash(); at >= 0 {
				sourceArgs = args[:at]
				valueArgs = args[at:]
			}

			decl, err := parseDeclaration(callSymbolFlag, callRetFlag, callArgFlags)
			if err != nil {
				return err
			}

			values, err := parseCallValues(decl, valueArgs)
			if err != nil {
				return err
			}

			session, err := harness.BuildAndLoad(
				cmd.Context(),
				parseSources(sourceArgs),
				m.Target(callTargetFlag),
				[]m.Func{decl},
				m.BuildOptions{Flags: callExtraFlags},
			)
			if err != nil {
				return err
			}

			defer func() {
				if closeErr := session.Close(); closeErr != nil {
					cmd.PrintErrf("warning: %v\n", closeErr)
				}
			}()

			result, err := session.Callables[0].Call(values...)
			if err != nil {
				return err
			}

			return ui.DisplayCallResult(decl, result)
		},
	}

	configureCallFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(callCmd)
}

func configureCallFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&callTargetFlag, "target", "t", "", "name of the produced module (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("target"))
	cmd.Flags().StringVarP(&callSymbolFlag, "symbol", "s", "", "exported symbol to bind (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("symbol"))
	cmd.Flags().StringVar(&callRetFlag, "ret", "int32", "return type tag")
	cmd.Flags().StringArrayVar(&callArgFlags, "arg", nil, "argument type tag, in order (can be repeated)")
	cmd.Flags().StringArrayVarP(&callExtraFlags, "flag", "f", nil, "extra compiler flag (can be repeated)")
}

func parseDeclaration(symbol, ret string, argTags []string) (m.Func, error) {
	retTag, err := m.ParseTypeTag(ret)
	if err != nil {
		return m.Func{}, err
	}

	args := make([]m.TypeTag, 0, len(argTags))

	for _, a := range argTags {
		tag, err := m.ParseTypeTag(a)
		if err != nil {
			return m.Func{}, err
		}

		args = append(args, tag)
	}

	return m.NewFunc(symbol, retTag, args...), nil
}

// parseCallValues turns the textual values after "--" into typed arguments
// per the declared tags.
func parseCallValues(decl m.Func, raw []string) ([]any, error) {
	if len(raw) != len(decl.Args) {
		return nil, fmt.Errorf("%s declares %d argument(s), got %d value(s)", decl.Symbol, len(decl.Args), len(raw))
	}

	values := make([]any, len(raw))

	for i, text := range raw {
		tag := decl.Args[i]

		switch {
		case tag.Integer() && tag.Signed():
			v, err := strconv.ParseInt(text, 0, tag.Bits())
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}

			values[i] = v
		case tag.Integer():
			v, err := strconv.ParseUint(text, 0, tag.Bits())
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}

			values[i] = v
		case tag.Float():
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}

			values[i] = v
		case tag == m.Pointer:
			v, err := strconv.ParseUint(text, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("argument %d: pointer values must be numeric addresses: %w", i, err)
			}

			values[i] = uintptr(v)
		default:
			return nil, fmt.Errorf("argument %d: unsupported tag %s", i, tag)
		}
	}

	return values, nil
}

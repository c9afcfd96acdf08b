/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fulmenhq/caretaker/pkg/buildinfo"
	"github.com/fulmenhq/caretaker/pkg/exitcode"
	"github.com/fulmenhq/caretaker/pkg/logger"
)

// newRootCommand creates a fresh root command instance.
// Tests build isolated command trees from it without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "caretaker",
		Short: "Diagnostics for H5P content packages",
		Long: `Caretaker inspects H5P content packages and reports accessibility,
license and efficiency findings for every content node.

Examples:
   caretaker check course.h5p                  # Text report on stdout
   caretaker check course.h5p -f html -o r.html
   caretaker check ./extracted --fail-on warning
   caretaker tree course.h5p                   # Show the content tree
   caretaker rules --dump                      # Print the effective rule tables`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config", "", "Configuration file (default: caretaker.yaml lookup)")

	cmd.SetGlobalNormalizationFunc(normalizeFlagName)

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("caretaker {{.Version}}\n")

	return cmd
}

// normalizeFlagName accepts config-style names such as --fail_on
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// registerSubcommands adds all subcommands to the root command.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newTreeCommand())
	cmd.AddCommand(newRulesCommand())
	cmd.AddCommand(newVersionCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

func init() {
	registerSubcommands(rootCmd)
}

// Execute runs the root command and exits with the code attached to a failure.
// This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	code := exitcode.Code(err)
	logger.Error(err.Error(), logger.Int("exit_code", code))
	os.Exit(code)
}

// initializeLogger sets up the logger based on the persistent flags
func initializeLogger(cmd *cobra.Command) error {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	level, err := logger.ParseLevel(logLevelStr)
	if err != nil {
		return exitcode.WithCode(exitcode.ConfigError, err)
	}

	config := logger.Config{
		Level:     level,
		UseColor:  !noColor && !jsonLogs,
		JSON:      jsonLogs,
		Component: "caretaker",
	}
	if err := logger.Initialize(config); err != nil {
		return exitcode.WithCode(exitcode.ConfigError, fmt.Errorf("failed to initialize logger: %w", err))
	}
	return nil
}

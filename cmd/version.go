/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/caretaker/pkg/buildinfo"
	"github.com/fulmenhq/caretaker/pkg/exitcode"
)

func newVersionCommand() *cobra.Command {
	var (
		extended bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show caretaker version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, extended, format)
		},
	}
	cmd.Flags().BoolVar(&extended, "extended", false, "Show detailed build information")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json)")
	return cmd
}

func runVersion(cmd *cobra.Command, extended bool, format string) error {
	info := buildinfo.Current()
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		jsonData, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(jsonData))
		return nil
	case "text", "":
	default:
		return exitcode.WithCode(exitcode.UnsupportedFormat, fmt.Errorf("unsupported format: %s", format))
	}

	_, _ = fmt.Fprintf(out, "caretaker %s\n", info.Version)
	if !extended {
		return nil
	}
	if info.ModuleVersion != "" {
		_, _ = fmt.Fprintf(out, "Module: %s\n", info.ModuleVersion)
	}
	commit := info.Commit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	if commit == "" {
		commit = "unknown"
	}
	_, _ = fmt.Fprintf(out, "Git commit: %s\n", commit)
	if info.BuildDate != "" {
		_, _ = fmt.Fprintf(out, "Build date: %s\n", info.BuildDate)
	}
	_, _ = fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
	_, _ = fmt.Fprintf(out, "Platform: %s\n", info.Platform)
	return nil
}

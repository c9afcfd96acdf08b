/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/caretaker/internal/content"
	"github.com/fulmenhq/caretaker/internal/rules"
	"github.com/fulmenhq/caretaker/pkg/ascii"
	"github.com/fulmenhq/caretaker/pkg/exitcode"
)

// messageTypes lists what each analyzer can report
var messageTypes = map[content.Category][]string{
	content.CategoryAccessibility: {rules.TypeMissingAltText, rules.TypeMissingCaptions, rules.TypeMissingTitle},
	content.CategoryLicense: {
		rules.TypeMissingLicense, rules.TypeMissingLicenseVersion, rules.TypeMissingAuthor,
		rules.TypeMissingSource, rules.TypeMissingLicenseExtras, rules.TypeForbiddenLicense,
	},
	content.CategoryEfficiency: {rules.TypeImageResolution, rules.TypeImageSize},
}

type rulesOptions struct {
	dump       bool
	showPolicy bool
	priorities string
	rules      ruleFlags
}

func newRulesCommand() *cobra.Command {
	opts := &rulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List analyzers or print the effective rule tables",
		Example: `  caretaker rules
  caretaker rules --dump --tables overrides.toml > effective.yaml
  caretaker rules --show-policy --policy policy.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRules(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.dump, "dump", false, "Print the effective rule tables as YAML")
	cmd.Flags().BoolVar(&opts.showPolicy, "show-policy", false, "Print the compiled license policy as Rego")
	cmd.Flags().StringVar(&opts.priorities, "priorities", "", "Category priorities used for the listing order")
	opts.rules.register(cmd)
	return cmd
}

func runRules(cmd *cobra.Command, opts *rulesOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts.rules.apply(cmd, &cfg.Rules)
	if cmd.Flags().Changed("priorities") {
		cfg.Report.Priorities = opts.priorities
	}

	tables, policy, err := loadRules(cmd.Context(), cfg.Rules)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	switch {
	case opts.dump:
		data, err := tables.DumpYAML()
		if err != nil {
			return fmt.Errorf("failed to encode rule tables: %w", err)
		}
		_, err = out.Write(data)
		return err
	case opts.showPolicy:
		if policy == nil {
			return exitcode.WithCode(exitcode.ConfigError, fmt.Errorf("no license policy configured (use --policy or rules.license_policy)"))
		}
		_, err := fmt.Fprintln(out, policy.Module())
		return err
	}

	registry := rules.DefaultRegistry()
	if cfg.Report.Priorities != "" {
		pm := rules.NewPriorityManager()
		if err := pm.ParsePriorityString(cfg.Report.Priorities); err != nil {
			return exitcode.WithCode(exitcode.ConfigError, err)
		}
		registry.SetPriorities(pm)
	}

	for _, c := range registry.Categories() {
		_, _ = fmt.Fprintf(out, "%s  priority %d\n", ascii.PadRight(string(c), 14), registry.Priorities().Priority(c))
		_, _ = fmt.Fprintln(out, ascii.Indent(strings.Join(messageTypes[c], "\n"), "  "))
	}
	if policy != nil {
		_, _ = fmt.Fprintf(out, "license policy: %s\n", cfg.Rules.LicensePolicy)
	}
	return nil
}

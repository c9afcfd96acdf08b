/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/fulmenhq/caretaker/internal/content"
	"github.com/fulmenhq/caretaker/internal/report"
	"github.com/fulmenhq/caretaker/internal/rules"
	"github.com/fulmenhq/caretaker/pkg/config"
	"github.com/fulmenhq/caretaker/pkg/exitcode"
)

// ruleFlags are shared by every command that evaluates rules
type ruleFlags struct {
	tables    string
	policy    string
	mediaGlob string
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tables, "tables", "", "Rule tables file (yaml, json/jsonc or toml) merged over the built-in tables")
	cmd.Flags().StringVar(&f.policy, "policy", "", "License policy file (yaml with licenses.forbidden, or .rego)")
	cmd.Flags().StringVar(&f.mediaGlob, "media-glob", "", "Glob selecting media paths the efficiency rules inspect")
}

func (f *ruleFlags) apply(cmd *cobra.Command, rc *config.RulesConfig) {
	if cmd.Flags().Changed("tables") {
		rc.TablesFile = f.tables
	}
	if cmd.Flags().Changed("policy") {
		rc.LicensePolicy = f.policy
	}
	if cmd.Flags().Changed("media-glob") {
		rc.MediaGlob = f.mediaGlob
	}
}

// loadConfig reads the layered configuration, honouring the persistent --config flag
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(cmd.Context(), explicit)
	if err != nil {
		return nil, exitcode.WithCode(exitcode.ConfigError, err)
	}
	return cfg, nil
}

// loadRules builds the effective rule tables and the optional license policy
func loadRules(ctx context.Context, rc config.RulesConfig) (*rules.Tables, *rules.LicensePolicy, error) {
	tables := rules.DefaultTables()
	if rc.TablesFile != "" {
		loaded, err := rules.LoadTables(rc.TablesFile)
		if err != nil {
			return nil, nil, exitcode.WithCode(exitcode.ConfigError, err)
		}
		tables = loaded
	}
	if rc.MediaGlob != "" {
		tables.MediaGlob = rc.MediaGlob
		if err := tables.Validate(); err != nil {
			return nil, nil, exitcode.WithCode(exitcode.ConfigError, fmt.Errorf("media glob: %w", err))
		}
	}

	if rc.LicensePolicy == "" {
		return tables, nil, nil
	}
	policy, err := rules.LoadLicensePolicy(ctx, rc.LicensePolicy)
	if err != nil {
		return nil, nil, exitcode.WithCode(exitcode.ConfigError, err)
	}
	return tables, policy, nil
}

// reportSettings are the typed report options after validation
type reportSettings struct {
	format     report.OutputFormat
	categories []content.Category
	minLevel   content.Level
	failOn     content.Level // empty never fails
	lang       language.Tag
	priorities *rules.PriorityManager
}

func resolveReportSettings(rc config.ReportConfig) (*reportSettings, error) {
	s := &reportSettings{priorities: rules.NewPriorityManager()}
	var err error

	if s.format, err = report.ParseFormat(rc.Format); err != nil {
		return nil, exitcode.WithCode(exitcode.UnsupportedFormat, err)
	}
	if s.categories, err = parseCategories(rc.Categories); err != nil {
		return nil, exitcode.WithCode(exitcode.ConfigError, err)
	}
	if rc.MinLevel != "" {
		if s.minLevel, err = content.ParseLevel(rc.MinLevel); err != nil {
			return nil, exitcode.WithCode(exitcode.ConfigError, fmt.Errorf("min-level: %w", err))
		}
	}
	if failOn := strings.TrimSpace(rc.FailOn); failOn != "" && !strings.EqualFold(failOn, "none") {
		if s.failOn, err = content.ParseLevel(failOn); err != nil {
			return nil, exitcode.WithCode(exitcode.ConfigError, fmt.Errorf("fail-on: %w", err))
		}
	}

	s.lang = rules.DefaultLanguage
	if rc.Locale != "" {
		if s.lang, err = language.Parse(rc.Locale); err != nil {
			return nil, exitcode.WithCode(exitcode.ConfigError, fmt.Errorf("invalid locale %q: %w", rc.Locale, err))
		}
	}

	if rc.Priorities != "" {
		if err := s.priorities.ParsePriorityString(rc.Priorities); err != nil {
			return nil, exitcode.WithCode(exitcode.ConfigError, err)
		}
	}
	return s, nil
}

// parseCategories accepts names from repeated flags or comma lists; empty means all
func parseCategories(names []string) ([]content.Category, error) {
	known := rules.NewPriorityManager().AllCategories()
	var out []content.Category
	seen := make(map[content.Category]bool)
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			c := content.Category(strings.ToLower(strings.TrimSpace(name)))
			if c == "" || seen[c] {
				continue
			}
			if !slices.Contains(known, c) {
				return nil, fmt.Errorf("unknown category %q (use %s)", name, joinCategories(known))
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

func joinCategories(cats []content.Category) string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

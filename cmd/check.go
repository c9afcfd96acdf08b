/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fulmenhq/caretaker/internal/builder"
	"github.com/fulmenhq/caretaker/internal/content"
	"github.com/fulmenhq/caretaker/internal/h5p"
	"github.com/fulmenhq/caretaker/internal/report"
	"github.com/fulmenhq/caretaker/internal/rules"
	"github.com/fulmenhq/caretaker/pkg/buildinfo"
	"github.com/fulmenhq/caretaker/pkg/config"
	"github.com/fulmenhq/caretaker/pkg/exitcode"
	"github.com/fulmenhq/caretaker/pkg/ignore"
	"github.com/fulmenhq/caretaker/pkg/logger"
	"github.com/fulmenhq/caretaker/pkg/safeio"
)

type checkOptions struct {
	format      string
	categories  []string
	minLevel    string
	failOn      string
	locale      string
	priorities  string
	output      string
	ignoreFile  string
	width       int
	concurrency int
	maxDepth    int
	timeout     time.Duration
	rules       ruleFlags
}

func newCheckCommand() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check <package>",
		Short: "Inspect a package and report findings",
		Long: `Inspect an H5P package (.h5p archive or extracted directory) and report
accessibility, license and efficiency findings per content node.

Flags override the configuration file, which overrides built-in defaults.`,
		Example: `  caretaker check course.h5p
  caretaker check course.h5p --categories license,efficiency --min-level warning
  caretaker check course.h5p --format junit --output caretaker.xml --fail-on warning
  caretaker check course.h5p --priorities "efficiency=highest" --locale de`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", "text", "Output format (text, json, markdown, html, junit)")
	f.StringSliceVar(&opts.categories, "categories", nil, "Restrict to categories (comma-separated: accessibility, license, efficiency)")
	f.StringVar(&opts.minLevel, "min-level", "info", "Only report findings at or above this level (info, warning, error)")
	f.StringVar(&opts.failOn, "fail-on", "error", "Exit non-zero on findings at or above this level (info, warning, error, none)")
	f.StringVar(&opts.locale, "locale", "en", "Locale for numbers and headings (BCP 47)")
	f.StringVar(&opts.priorities, "priorities", "", "Category priorities (e.g. 'license=1,efficiency=highest')")
	f.StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	f.StringVar(&opts.ignoreFile, "ignore-file", "", "Suppress findings for files matching these patterns (default: .caretakerignore lookup)")
	f.IntVar(&opts.width, "width", 0, "Truncate text report lines to this width (0 disables)")
	f.IntVar(&opts.concurrency, "concurrency", 1, "Run up to this many analyzers in parallel")
	f.IntVar(&opts.maxDepth, "max-depth", builder.DefaultMaxDepth, "Maximum content nesting depth")
	f.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Abort the check after this duration")
	opts.rules.register(cmd)

	return cmd
}

// apply copies explicitly set flags over the loaded configuration
func (o *checkOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Report.Format = o.format
	}
	if f.Changed("categories") {
		cfg.Report.Categories = o.categories
	}
	if f.Changed("min-level") {
		cfg.Report.MinLevel = o.minLevel
	}
	if f.Changed("fail-on") {
		cfg.Report.FailOn = o.failOn
	}
	if f.Changed("locale") {
		cfg.Report.Locale = o.locale
	}
	if f.Changed("priorities") {
		cfg.Report.Priorities = o.priorities
	}
	if f.Changed("width") {
		cfg.Report.Width = o.width
	}
	if f.Changed("concurrency") {
		cfg.Engine.Concurrency = o.concurrency
	}
	if f.Changed("max-depth") {
		cfg.Engine.MaxDepth = o.maxDepth
	}
	o.rules.apply(cmd, &cfg.Rules)
}

func runCheck(cmd *cobra.Command, opts *checkOptions, target string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg)

	settings, err := resolveReportSettings(cfg.Report)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	tables, policy, err := loadRules(ctx, cfg.Rules)
	if err != nil {
		return err
	}

	full, err := inspect(ctx, target, cfg, settings, tables, policy)
	if err != nil {
		return err
	}
	if full, err = suppressIgnored(full, opts.ignoreFile); err != nil {
		return err
	}

	shown := full.Filter(settings.categories, settings.minLevel)
	if err := writeCheckReport(cmd, opts, cfg, settings, shown); err != nil {
		return err
	}

	// The fail threshold ignores --min-level so hidden errors still fail the run
	if full.Filter(settings.categories, "").ShouldFail(settings.failOn) {
		return exitcode.WithCode(exitcode.FindingsFailure,
			fmt.Errorf("check failed: found findings at or above %s level", settings.failOn))
	}
	return nil
}

// inspect opens the package and runs the analyzers, returning the unfiltered report
func inspect(ctx context.Context, target string, cfg *config.Config, settings *reportSettings, tables *rules.Tables, policy *rules.LicensePolicy) (*report.Report, error) {
	start := time.Now()

	pkg, err := h5p.Open(ctx, target)
	if err != nil {
		return nil, classifyOpenError(err)
	}

	tree, err := builder.Build(pkg.Document(), pkg.Semantics,
		builder.WithMedia(pkg.Media),
		builder.WithMaxDepth(cfg.Engine.MaxDepth))
	if err != nil {
		return nil, exitcode.WithCode(exitcode.ValidationError, fmt.Errorf("building content tree: %w", err))
	}

	engine := rules.NewEngine(nil)
	engine.Registry().SetPriorities(settings.priorities)

	env := rules.NewEnv(tables, pkg.Media, policy, settings.lang)
	runs, err := engine.Run(ctx, tree, env, rules.Config{
		Categories:  settings.categories,
		Concurrency: cfg.Engine.Concurrency,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, exitcode.WithCode(exitcode.TimeoutError, err)
		}
		return nil, err
	}

	rep := report.Assemble(tree, report.Metadata{
		GeneratedAt:   time.Now().UTC(),
		Tool:          "caretaker",
		Version:       buildinfo.BinaryVersion,
		Package:       target,
		Digest:        pkg.Digest,
		Title:         pkg.Manifest.Title,
		MainLibrary:   pkg.Manifest.MainLibraryVersion().String(),
		ExecutionTime: time.Since(start),
		Runs:          runs,
	})
	rep.SetPriorities(settings.priorities)

	logger.Debug(fmt.Sprintf("Checked %s", target),
		logger.Int("nodes", rep.Summary.Nodes),
		logger.Int("messages", rep.Summary.TotalMessages),
		logger.Duration("took", rep.Metadata.ExecutionTime))
	return rep, nil
}

// suppressIgnored drops findings about files listed in the ignore files
func suppressIgnored(rep *report.Report, explicit string) (*report.Report, error) {
	var (
		m   *ignore.Matcher
		err error
	)
	if explicit != "" {
		m, err = ignore.LoadFile(explicit)
	} else {
		home, _ := config.GetCaretakerHome()
		wd, _ := os.Getwd()
		m, err = ignore.Load(home, wd)
	}
	if err != nil {
		return nil, exitcode.WithCode(exitcode.ConfigError, err)
	}
	if m.Empty() {
		return rep, nil
	}

	out := rep.Suppress(func(msg content.Message) bool {
		return msg.Details.Path != "" && m.Match(msg.Details.Path)
	})
	if out.Summary.Suppressed > 0 {
		logger.Info(fmt.Sprintf("Suppressed %d findings from ignore patterns", out.Summary.Suppressed))
	}
	return out, nil
}

func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, h5p.ErrInvalidPackage):
		return exitcode.WithCode(exitcode.ValidationError, err)
	case errors.Is(err, context.DeadlineExceeded):
		return exitcode.WithCode(exitcode.TimeoutError, err)
	case errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission), errors.Is(err, safeio.ErrTraversal):
		return exitcode.WithCode(exitcode.FileSystemError, err)
	default:
		return err
	}
}

func writeCheckReport(cmd *cobra.Command, opts *checkOptions, cfg *config.Config, settings *reportSettings, rep *report.Report) error {
	noColor, _ := cmd.Flags().GetBool("no-color")

	formatter := report.NewFormatter(settings.format)
	formatter.SetLanguage(settings.lang)
	formatter.SetWidth(cfg.Report.Width)
	formatter.SetColor(opts.output == "" && !noColor && !color.NoColor)

	if opts.output == "" {
		return writeTo(cmd.OutOrStdout(), formatter, rep)
	}

	rendered, err := formatter.FormatReport(rep)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := safeio.WriteFileClean(opts.output, []byte(rendered)); err != nil {
		if errors.Is(err, safeio.ErrTraversal) {
			return exitcode.WithCode(exitcode.FileSystemError, fmt.Errorf("invalid output path: %w", err))
		}
		return exitcode.WithCode(exitcode.FileSystemError, fmt.Errorf("failed to write output file: %w", err))
	}
	logger.Info(fmt.Sprintf("Report written to %s", opts.output),
		logger.Int("messages", rep.Summary.TotalMessages),
		logger.String("max_level", string(maxLevelOrNone(rep))))
	return nil
}

func writeTo(w io.Writer, formatter *report.Formatter, rep *report.Report) error {
	if err := formatter.WriteReport(w, rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func maxLevelOrNone(rep *report.Report) content.Level {
	if l := rep.MaxLevel(); l != "" {
		return l
	}
	return "none"
}

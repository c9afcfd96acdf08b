/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fulmenhq/caretaker/internal/content"
)

// OutputFormat represents the format for report output
type OutputFormat string

const (
	FormatJSON     OutputFormat = "json"
	FormatMarkdown OutputFormat = "markdown"
	FormatText     OutputFormat = "text"
	FormatHTML     OutputFormat = "html"
	FormatJUnit    OutputFormat = "junit"
)

// Formats lists the supported output formats
var Formats = []OutputFormat{FormatText, FormatJSON, FormatMarkdown, FormatHTML, FormatJUnit}

// ParseFormat validates a user supplied format name
func ParseFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if f == "md" {
		return FormatMarkdown, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// Formatter renders reports
type Formatter struct {
	format OutputFormat
	color  bool
	width  int
	lang   language.Tag
}

// NewFormatter creates a new report formatter. Colour is off and lines are not truncated by default.
func NewFormatter(format OutputFormat) *Formatter {
	return &Formatter{format: format, lang: language.English}
}

// SetColor enables ANSI colours in text output
func (f *Formatter) SetColor(enabled bool) {
	f.color = enabled
}

// SetWidth truncates text output lines to width columns; zero disables truncation
func (f *Formatter) SetWidth(width int) {
	f.width = width
}

// SetLanguage selects the locale used for numbers and headings
func (f *Formatter) SetLanguage(tag language.Tag) {
	if tag != language.Und {
		f.lang = tag
	}
}

// FormatReport formats a report according to the configured format
func (f *Formatter) FormatReport(report *Report) (string, error) {
	switch f.format {
	case FormatJSON:
		return f.formatJSON(report)
	case FormatMarkdown:
		return f.formatMarkdown(report), nil
	case FormatText:
		return f.formatText(report), nil
	case FormatHTML:
		return f.formatHTML(report)
	case FormatJUnit:
		return f.formatJUnit(report)
	default:
		return "", fmt.Errorf("unsupported format: %s", f.format)
	}
}

// WriteReport writes a formatted report to the given writer
func (f *Formatter) WriteReport(w io.Writer, report *Report) error {
	output, err := f.FormatReport(report)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	_, err = io.WriteString(w, output)
	return err
}

func (f *Formatter) formatJSON(report *Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func (f *Formatter) formatMarkdown(report *Report) string {
	p := message.NewPrinter(f.lang)
	var sb strings.Builder

	sb.WriteString("# Content Diagnostics Report\n\n")
	writeMetadataMarkdown(&sb, report.Metadata)

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Level | Messages |\n")
	sb.WriteString("|-------|----------|\n")
	for _, lvl := range []content.Level{content.LevelError, content.LevelWarning, content.LevelInfo} {
		p.Fprintf(&sb, "| %s %s | %d |\n", levelEmoji(lvl), lvl, report.Summary.ByLevel[lvl])
	}
	p.Fprintf(&sb, "\n- **Total Messages:** %d\n", report.Summary.TotalMessages)
	p.Fprintf(&sb, "- **Content Nodes:** %d (%d with findings)\n", report.Summary.Nodes, report.Summary.NodesWithMessages)
	p.Fprintf(&sb, "- **Files:** %d\n\n", report.Summary.Files)

	for _, group := range report.ByCategory() {
		p.Fprintf(&sb, "## %s (%d)\n\n", f.title(string(group.Category)), len(group.Messages))
		if len(group.Messages) == 0 {
			sb.WriteString("No findings.\n\n")
			continue
		}
		for _, m := range group.Messages {
			fmt.Fprintf(&sb, "### %s %s\n\n", levelEmoji(m.Level), m.Summary)
			fmt.Fprintf(&sb, "- **Type:** `%s`\n", m.Type)
			fmt.Fprintf(&sb, "- **Level:** %s\n", m.Level)
			fmt.Fprintf(&sb, "- **Content:** %s (`%s`)\n", m.Details.Title, m.SubContentID)
			if m.Details.Path != "" {
				fmt.Fprintf(&sb, "- **File:** `%s`\n", m.Details.Path)
			}
			if m.Details.SemanticsPath != "" {
				fmt.Fprintf(&sb, "- **Parameter:** `%s`\n", m.Details.SemanticsPath)
			}
			sb.WriteString("\n")
			for _, line := range m.Description {
				sb.WriteString(line + "\n")
			}
			if len(m.Recommendation) > 0 {
				sb.WriteString("\n**Recommendations:**\n\n")
				for _, line := range m.Recommendation {
					sb.WriteString("- " + line + "\n")
				}
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "*Report generated by %s %s*\n", report.Metadata.Tool, report.Metadata.Version)
	return sb.String()
}

func writeMetadataMarkdown(sb *strings.Builder, md Metadata) {
	if !md.GeneratedAt.IsZero() {
		fmt.Fprintf(sb, "**Generated:** %s\n", md.GeneratedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(sb, "**Package:** %s\n", md.Package)
	if md.Title != "" {
		fmt.Fprintf(sb, "**Title:** %s\n", md.Title)
	}
	if md.MainLibrary != "" {
		fmt.Fprintf(sb, "**Main Library:** %s\n", md.MainLibrary)
	}
	if md.Digest != "" {
		fmt.Fprintf(sb, "**Digest:** `%s`\n", md.Digest)
	}
	fmt.Fprintf(sb, "**Execution Time:** %v\n\n", md.ExecutionTime)
}

func levelEmoji(l content.Level) string {
	switch l {
	case content.LevelError:
		return "❌"
	case content.LevelWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

func (f *Formatter) title(s string) string {
	return cases.Title(f.lang).String(s)
}

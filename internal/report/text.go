/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/message"

	"github.com/fulmenhq/caretaker/internal/content"
	"github.com/fulmenhq/caretaker/pkg/ascii"
)

const textIndent = "    "

type palette struct {
	bold, dim, err, warn, info, ok *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		bold: color.New(color.Bold),
		dim:  color.New(color.Faint),
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow),
		info: color.New(color.FgCyan),
		ok:   color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.bold, p.dim, p.err, p.warn, p.info, p.ok} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) level(l content.Level) *color.Color {
	switch l {
	case content.LevelError:
		return p.err
	case content.LevelWarning:
		return p.warn
	default:
		return p.info
	}
}

// formatText prints a compact, optionally coloured listing for terminals
func (f *Formatter) formatText(report *Report) string {
	pal := newPalette(f.color)
	pr := message.NewPrinter(f.lang)
	var sb strings.Builder

	header := []string{fmt.Sprintf("%s %s", report.Metadata.Tool, report.Metadata.Version)}
	pkg := report.Metadata.Package
	if report.Metadata.MainLibrary != "" {
		pkg = fmt.Sprintf("%s (%s)", pkg, report.Metadata.MainLibrary)
	}
	header = append(header, "Package: "+pkg)
	if report.Metadata.Title != "" {
		header = append(header, "Title:   "+report.Metadata.Title)
	}
	if report.Metadata.Digest != "" {
		header = append(header, "Digest:  "+report.Metadata.Digest)
	}
	sb.WriteString(ascii.Box(header))
	sb.WriteString("\n")

	for _, group := range report.ByCategory() {
		heading := strings.ToUpper(f.title(string(group.Category)))
		if len(group.Messages) == 0 {
			fmt.Fprintf(&sb, "%s %s\n\n", pal.bold.Sprint(heading), pal.ok.Sprint("ok"))
			continue
		}
		fmt.Fprintf(&sb, "%s %s\n", pal.bold.Sprint(heading), pr.Sprintf("(%d)", len(group.Messages)))
		for _, m := range group.Messages {
			f.writeTextMessage(&sb, pal, m)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(f.textSummary(pal, pr, report.Summary))
	return sb.String()
}

func (f *Formatter) writeTextMessage(sb *strings.Builder, pal palette, m content.Message) {
	label := ascii.PadRight(string(m.Level), len(content.LevelWarning))
	prefix := "  " + label + "  "
	fmt.Fprintf(sb, "  %s  %s\n", pal.level(m.Level).Sprint(label), f.fit(m.Summary, ascii.StringWidth(prefix)))

	location := m.SubContentID
	if m.Details.Path != "" {
		location = m.Details.Path + " @ " + location
	}
	fmt.Fprintf(sb, "%s%s\n", textIndent, pal.dim.Sprint(f.fit(location, len(textIndent))))
	for _, line := range m.Recommendation {
		fmt.Fprintf(sb, "%s→ %s\n", textIndent, f.fit(line, len(textIndent)+2))
	}
}

// fit truncates s so that a line starting at column offset stays within the configured width
func (f *Formatter) fit(s string, offset int) string {
	if f.width <= 0 {
		return s
	}
	return ascii.Truncate(s, max(f.width-offset, 1))
}

func (f *Formatter) textSummary(pal palette, pr *message.Printer, s Summary) string {
	if s.TotalMessages == 0 {
		return pal.ok.Sprint(pr.Sprintf("No findings across %d content nodes.", s.Nodes)) + "\n"
	}
	counts := []string{
		pal.err.Sprint(pr.Sprintf("%d errors", s.ByLevel[content.LevelError])),
		pal.warn.Sprint(pr.Sprintf("%d warnings", s.ByLevel[content.LevelWarning])),
		pal.info.Sprint(pr.Sprintf("%d info", s.ByLevel[content.LevelInfo])),
	}
	return pr.Sprintf("%d messages (%s) on %d of %d content nodes.\n",
		s.TotalMessages, strings.Join(counts, ", "), s.NodesWithMessages, s.Nodes)
}

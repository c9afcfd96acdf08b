/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package report

import (
	"fmt"
	"time"

	"github.com/aymerick/raymond"
	"golang.org/x/text/message"

	"github.com/fulmenhq/caretaker/internal/assets"
	"github.com/fulmenhq/caretaker/internal/content"
)

// htmlData is the Handlebars view of a report
type htmlData struct {
	Lang              string
	Title             string
	Package           string
	MainLibrary       string
	Digest            string
	GeneratedAt       string
	Tool              string
	Version           string
	Errors            string
	Warnings          string
	Infos             string
	Total             string
	Nodes             string
	NodesWithMessages string
	Categories        []htmlCategory
}

type htmlCategory struct {
	Name     string
	Heading  string
	Count    int
	Messages []htmlMessage
}

type htmlMessage struct {
	Level          string
	Summary        string
	Path           string
	SubContentID   string
	Description    []string
	Recommendation []string
}

func (f *Formatter) formatHTML(report *Report) (string, error) {
	pr := message.NewPrinter(f.lang)
	count := func(n int) string { return pr.Sprintf("%d", n) }

	title := report.Metadata.Title
	if title == "" {
		title = report.Metadata.Package
	}
	generated := ""
	if !report.Metadata.GeneratedAt.IsZero() {
		generated = report.Metadata.GeneratedAt.Format(time.RFC1123)
	}

	data := htmlData{
		Lang:              f.lang.String(),
		Title:             title,
		Package:           report.Metadata.Package,
		MainLibrary:       report.Metadata.MainLibrary,
		Digest:            report.Metadata.Digest,
		GeneratedAt:       generated,
		Tool:              report.Metadata.Tool,
		Version:           report.Metadata.Version,
		Errors:            count(report.Summary.ByLevel[content.LevelError]),
		Warnings:          count(report.Summary.ByLevel[content.LevelWarning]),
		Infos:             count(report.Summary.ByLevel[content.LevelInfo]),
		Total:             count(report.Summary.TotalMessages),
		Nodes:             count(report.Summary.Nodes),
		NodesWithMessages: count(report.Summary.NodesWithMessages),
	}

	for _, group := range report.ByCategory() {
		hc := htmlCategory{
			Name:    string(group.Category),
			Heading: f.title(string(group.Category)),
			Count:   len(group.Messages),
		}
		for _, m := range group.Messages {
			hc.Messages = append(hc.Messages, htmlMessage{
				Level:          string(m.Level),
				Summary:        m.Summary,
				Path:           m.Details.Path,
				SubContentID:   m.SubContentID,
				Description:    m.Description,
				Recommendation: m.Recommendation,
			})
		}
		data.Categories = append(data.Categories, hc)
	}

	tpl, err := assets.GetTemplate(assets.ReportTemplatePath)
	if err != nil {
		return "", fmt.Errorf("loading report template: %w", err)
	}
	return renderHandlebars(string(tpl), data)
}

// renderHandlebars renders a Handlebars template string with the report helpers registered
func renderHandlebars(tpl string, data any) (string, error) {
	t, err := raymond.Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("parsing report template: %w", err)
	}
	t.RegisterHelper("levelClass", func(level string) string {
		return "level-" + level
	})
	out, err := t.Exec(data)
	if err != nil {
		return "", fmt.Errorf("rendering report template: %w", err)
	}
	return out, nil
}

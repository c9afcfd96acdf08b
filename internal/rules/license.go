/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"context"
	"strings"

	"golang.org/x/text/message"

	"github.com/fulmenhq/caretaker/internal/content"
)

// License message types
const (
	TypeMissingLicense        = "missingLicense"
	TypeMissingLicenseVersion = "missingLicenseVersion"
	TypeMissingAuthor         = "missingAuthor"
	TypeMissingSource         = "missingSource"
	TypeMissingLicenseExtras  = "missingLicenseExtras"
	TypeForbiddenLicense      = "forbiddenLicense"
)

// LicenseAnalyzer checks the license metadata of every content node and every
// embedded file that carries a copyright block.
type LicenseAnalyzer struct{}

// Category implements Analyzer
func (LicenseAnalyzer) Category() content.Category { return content.CategoryLicense }

// Analyze implements Analyzer
func (LicenseAnalyzer) Analyze(ctx context.Context, tree *content.Tree, env *Env, sink content.Sink) error {
	if err := (Dispatch{Generic: {checkLicenses}}).Run(ctx, tree, env, sink); err != nil {
		return err
	}
	if env == nil || env.Policy == nil {
		return nil
	}
	return checkPolicy(ctx, tree, env, sink)
}

// licensed is the common view of node metadata and file copyright blocks
type licensed struct {
	node *content.Node
	// file is nil when the node itself is checked
	file *content.FileReference

	license   string
	version   string
	source    string
	extras    string
	hasAuthor bool
}

func nodeLicense(n *content.Node) licensed {
	return licensed{
		node:      n,
		license:   strings.TrimSpace(n.Metadata.License),
		version:   strings.TrimSpace(n.Metadata.LicenseVersion),
		source:    strings.TrimSpace(n.Metadata.Source),
		extras:    strings.TrimSpace(n.Metadata.LicenseExtras),
		hasAuthor: len(n.Metadata.Authors) > 0,
	}
}

func fileLicense(n *content.Node, f *content.FileReference) licensed {
	return licensed{
		node:      n,
		file:      f,
		license:   strings.TrimSpace(f.Metadata.License),
		version:   strings.TrimSpace(f.Metadata.LicenseVersion),
		source:    strings.TrimSpace(f.Metadata.Source),
		hasAuthor: strings.TrimSpace(f.Metadata.Author) != "",
	}
}

// subjects lists the node and its files with copyright blocks, in that order
func subjects(n *content.Node) []licensed {
	out := []licensed{nodeLicense(n)}
	for _, f := range n.Files() {
		if f.Metadata.Empty() {
			continue
		}
		out = append(out, fileLicense(n, f))
	}
	return out
}

func (l licensed) describe(tree *content.Tree) string {
	if l.file != nil {
		return tree.DescribeFile(l.file, content.FileDescription) + " inside " + tree.Describe(l.node.ID, content.NodeDescription)
	}
	return tree.Describe(l.node.ID, content.NodeDescription)
}

func (l licensed) details(tree *content.Tree) content.Details {
	if l.file != nil {
		return fileDetails(tree, l.node, l.file)
	}
	return content.Details{
		SemanticsPath: l.node.SemanticsPath,
		Title:         tree.Describe(l.node.ID, "{title}"),
		SubContentID:  l.node.SubContentID,
	}
}

func (l licensed) report(tree *content.Tree, sink content.Sink, typ string, level content.Level, summary string, description, recommendation []string) {
	sink.AttachMessage(l.node.ID, content.Message{
		Category:       content.CategoryLicense,
		Type:           typ,
		Level:          level,
		Summary:        summary,
		Description:    description,
		Recommendation: recommendation,
		Details:        l.details(tree),
		SubContentID:   l.node.SubContentID,
	})
}

func checkLicenses(tree *content.Tree, n *content.Node, env *Env, sink content.Sink) {
	t := env.tables()
	p := env.printer()
	for _, l := range subjects(n) {
		checkLicense(tree, l, t, p, sink)
	}
}

func checkLicense(tree *content.Tree, l licensed, t *Tables, p *message.Printer, sink content.Sink) {
	what := l.describe(tree)

	if l.license == "" || hasCode(t.Licenses.Undisclosed, l.license) {
		description := p.Sprintf("No license was set.")
		if l.license != "" {
			description = p.Sprintf("The license is undisclosed.")
		}
		l.report(tree, sink, TypeMissingLicense, content.LevelError,
			p.Sprintf("Missing license information for %s.", what),
			[]string{description},
			[]string{p.Sprintf("Check the license of the material and set it in the metadata.")})
		return
	}

	if hasCode(t.Licenses.Versioned, l.license) && l.version == "" {
		l.report(tree, sink, TypeMissingLicenseVersion, content.LevelWarning,
			p.Sprintf("Missing license version for %s.", what),
			[]string{p.Sprintf("The license is %s, but no version was set.", l.license)},
			[]string{p.Sprintf("Set the license version in the metadata.")})
	}

	if hasCode(t.Licenses.Attribution, l.license) && !l.hasAuthor {
		l.report(tree, sink, TypeMissingAuthor, content.LevelWarning,
			p.Sprintf("Missing author information for %s.", what),
			[]string{p.Sprintf("The license %s requires attribution, but no author was set.", l.license)},
			[]string{p.Sprintf("Add the author in the metadata.")})
	}

	if hasCode(t.Licenses.SourceRequired, l.license) && l.source == "" {
		l.report(tree, sink, TypeMissingSource, content.LevelInfo,
			p.Sprintf("Missing source for %s.", what),
			[]string{p.Sprintf("The license %s asks to link to the original material, but no source was set.", l.license)},
			[]string{p.Sprintf("Add a link to the original material in the metadata.")})
	}

	if l.file == nil && hasCode(t.Licenses.ExtrasRequired, l.license) && l.extras == "" {
		l.report(tree, sink, TypeMissingLicenseExtras, content.LevelInfo,
			p.Sprintf("Missing license extras for %s.", what),
			[]string{p.Sprintf("The material is copyrighted, but no license extras explain the terms of use.")},
			[]string{p.Sprintf("Describe in the license extras how the material may be used.")})
	}
}

// checkPolicy evaluates all licensed items in one policy query
func checkPolicy(ctx context.Context, tree *content.Tree, env *Env, sink content.Sink) error {
	var items []licensed
	var input []PolicySubject
	for n := range tree.Nodes() {
		if n.MachineName() == "" {
			continue
		}
		for _, l := range subjects(n) {
			if l.license == "" {
				continue
			}
			s := PolicySubject{
				Index:   len(items),
				Kind:    "content",
				Library: n.MachineName(),
				License: l.license,
				Version: l.version,
			}
			if l.file != nil {
				s.Kind = "file"
				s.Path = l.file.Path
			}
			items = append(items, l)
			input = append(input, s)
		}
	}
	if len(items) == 0 {
		return nil
	}

	violations, err := env.Policy.Evaluate(ctx, input)
	if err != nil {
		return err
	}

	p := env.printer()
	for _, v := range violations {
		if v.Index < 0 || v.Index >= len(items) {
			continue
		}
		l := items[v.Index]
		description := []string{p.Sprintf("The license %s is not allowed for this project.", l.license)}
		if v.Message != "" {
			description = append(description, v.Message)
		}
		l.report(tree, sink, TypeForbiddenLicense, content.LevelError,
			p.Sprintf("Forbidden license used by %s.", l.describe(tree)),
			description,
			[]string{p.Sprintf("Replace the material or obtain it under a permitted license.")})
	}
	return nil
}

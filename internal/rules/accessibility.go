/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"context"
	"strings"

	"github.com/fulmenhq/caretaker/internal/content"
)

// Accessibility message types
const (
	TypeMissingAltText  = "missingAltText"
	TypeMissingCaptions = "missingCaptions"
	TypeMissingTitle    = "missingTitle"
)

// AccessibilityAnalyzer reports content that screen reader or deaf users cannot follow
type AccessibilityAnalyzer struct{}

// Category implements Analyzer
func (AccessibilityAnalyzer) Category() content.Category { return content.CategoryAccessibility }

// Analyze implements Analyzer
func (a AccessibilityAnalyzer) Analyze(ctx context.Context, tree *content.Tree, env *Env, sink content.Sink) error {
	return a.dispatch(env.tables()).Run(ctx, tree, env, sink)
}

func (AccessibilityAnalyzer) dispatch(t *Tables) Dispatch {
	d := Dispatch{Generic: {checkTitle}}
	for name := range t.AltText {
		d[name] = append(d[name], checkAltText)
	}
	for name := range t.Captions {
		d[name] = append(d[name], checkCaptions)
	}
	return d
}

func checkAltText(tree *content.Tree, n *content.Node, env *Env, sink content.Sink) {
	p := env.printer()
	for _, f := range n.Files() {
		if f.Type != content.FileTypeImage {
			continue
		}
		for _, rule := range env.tables().AltText[n.MachineName()] {
			if !pathEndsWith(f.LocalPath, rule.FileSuffix) {
				continue
			}
			if rule.DecorativeParam != "" {
				v, _ := content.Lookup(n.Params, content.SiblingPath(f.LocalPath, rule.DecorativeParam))
				if decorative, _ := v.(bool); decorative {
					break
				}
			}
			alt, _ := content.LookupString(n.Params, content.SiblingPath(f.LocalPath, rule.AltParam))
			if strings.TrimSpace(alt) != "" {
				break
			}

			content.ReportFile(sink, f, content.Message{
				Category: content.CategoryAccessibility,
				Type:     TypeMissingAltText,
				Level:    content.LevelError,
				Summary:  p.Sprintf("Missing alternative text for image inside %s.", tree.Describe(n.ID, content.NodeDescription)),
				Description: []string{
					p.Sprintf("The image %s has no alternative text.", tree.DescribeFile(f, content.FileDescription)),
				},
				Recommendation: []string{
					p.Sprintf("Add an alternative text that describes the image for people who cannot see it."),
				},
				Details:      fileDetails(tree, n, f),
				SubContentID: n.SubContentID,
			})
			break
		}
	}
}

// pathEndsWith matches whole path segments: "dialogs[1].image" ends with "image", "coverImage" does not
func pathEndsWith(p, suffix string) bool {
	if !strings.HasSuffix(p, suffix) {
		return false
	}
	rest := p[:len(p)-len(suffix)]
	return rest == "" || strings.HasSuffix(rest, ".") || strings.HasPrefix(suffix, ".")
}

func checkCaptions(tree *content.Tree, n *content.Node, env *Env, sink content.Sink) {
	rule := env.tables().Captions[n.MachineName()]
	sourcesPrefix, tracksPrefix := rule.SourcesParam, rule.TracksParam

	// streamed sources carry their own captions
	sources, tracks := 0, 0
	for _, f := range n.Files() {
		switch {
		case f.Type == content.FileTypeVideo && !f.IsRemote() && underParam(f.LocalPath, sourcesPrefix):
			sources++
		case underParam(f.LocalPath, tracksPrefix):
			tracks++
		}
	}
	if sources == 0 || tracks > 0 {
		return
	}

	p := env.printer()
	sink.AttachMessage(n.ID, content.Message{
		Category: content.CategoryAccessibility,
		Type:     TypeMissingCaptions,
		Level:    content.LevelWarning,
		Summary:  p.Sprintf("Video %s has no captions.", tree.Describe(n.ID, content.NodeDescription)),
		Description: []string{
			p.Sprintf("No text track was found for this video."),
		},
		Recommendation: []string{
			p.Sprintf("Add captions so that people who cannot hear the audio can follow the video."),
		},
		Details: content.Details{
			SemanticsPath: n.SemanticsPath,
			Title:         tree.Describe(n.ID, "{title}"),
			SubContentID:  n.SubContentID,
		},
		SubContentID: n.SubContentID,
	})
}

func underParam(localPath, param string) bool {
	if param == "" {
		return false
	}
	return localPath == param || strings.HasPrefix(localPath, param+".") || strings.HasPrefix(localPath, param+"[")
}

func checkTitle(tree *content.Tree, n *content.Node, env *Env, sink content.Sink) {
	if strings.TrimSpace(n.Metadata.Title) != "" {
		return
	}

	p := env.printer()
	sink.AttachMessage(n.ID, content.Message{
		Category: content.CategoryAccessibility,
		Type:     TypeMissingTitle,
		Level:    content.LevelInfo,
		Summary:  p.Sprintf("%s has no title.", tree.Describe(n.ID, content.NodeDescription)),
		Description: []string{
			p.Sprintf("Titles help people using assistive technologies to tell content apart."),
		},
		Recommendation: []string{
			p.Sprintf("Set a title in the metadata of %s.", tree.Describe(n.ID, "{machineName}")),
		},
		Details: content.Details{
			SemanticsPath: n.SemanticsPath,
			Title:         tree.Describe(n.ID, "{title}"),
			SubContentID:  n.SubContentID,
		},
		SubContentID: n.SubContentID,
	})
}

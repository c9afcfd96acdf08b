/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/fulmenhq/caretaker/internal/content"
)

// Efficiency message types
const (
	TypeImageResolution = "imageResolution"
	TypeImageSize       = "imageSize"
)

// EfficiencyAnalyzer flags images that are larger than their content type can display
// or heavier than their resolution warrants.
type EfficiencyAnalyzer struct{}

// Category implements Analyzer
func (EfficiencyAnalyzer) Category() content.Category { return content.CategoryEfficiency }

// Analyze implements Analyzer
func (EfficiencyAnalyzer) Analyze(ctx context.Context, tree *content.Tree, env *Env, sink content.Sink) error {
	t := env.tables()
	p := env.printer()
	var media content.MediaIndex
	if env != nil {
		media = env.Media
	}

	for f := range tree.Files() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.IsRemote() {
			continue
		}
		matched, err := doublestar.Match(t.MediaGlob, f.Path)
		if err != nil {
			return fmt.Errorf("invalid media glob %q: %w", t.MediaGlob, err)
		}
		if !matched {
			continue
		}

		owner := tree.Node(f.Owner)
		if owner == nil {
			continue
		}
		for _, c := range resolutionCaps(tree, owner, f, t) {
			checkResolution(tree, owner, f, c, t.ZoomFactor, p, sink)
		}
		checkFileSize(tree, owner, f, media, t, p, sink)
	}
	return nil
}

// displayCap is a resolved cap; zero means unbounded in that dimension
type displayCap struct {
	height float64
	width  float64
}

// resolutionCaps finds the table entries that apply to f
func resolutionCaps(tree *content.Tree, owner *content.Node, f *content.FileReference, t *Tables) []displayCap {
	var caps []displayCap
	for _, entry := range t.ResolutionCaps[owner.MachineName()] {
		source := owner
		if entry.Ancestor != nil {
			depth := min(entry.Ancestor.Depth, MaxAncestorDepth)
			source = tree.Ancestor(owner.ID, depth)
			if source == nil || source.MachineName() != entry.Ancestor.MachineName {
				continue
			}
		}

		for _, suffix := range entry.PathSuffixes {
			if !strings.HasSuffix(f.SemanticsPath, suffix) {
				continue
			}
			c := displayCap{height: entry.MaxHeight, width: entry.MaxWidth}
			if entry.HeightParam != "" {
				c.height = paramPixels(source, entry.HeightParam)
			}
			if entry.WidthParam != "" {
				c.width = paramPixels(source, entry.WidthParam)
			}
			caps = append(caps, c)
			break
		}
	}
	return caps
}

func paramPixels(n *content.Node, param string) float64 {
	v, ok := n.Param(param)
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case float64:
		if x > 0 {
			return x
		}
	case int:
		if x > 0 {
			return float64(x)
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil && f > 0 {
			return f
		}
	}
	return 0
}

// pixels prints a cap the way it is displayed: truncated to whole pixels
func pixels(v float64) string {
	return strconv.FormatInt(int64(v), 10)
}

func resolutionLine(p *message.Printer, f *content.FileReference) string {
	w, okW := f.Dimensions.Width()
	h, okH := f.Dimensions.Height()
	if !okW || !okH {
		return p.Sprintf("The image has an unknown resolution.")
	}
	return p.Sprintf("The image has a resolution of %sx%s pixels.", strconv.Itoa(w), strconv.Itoa(h))
}

func checkResolution(tree *content.Tree, owner *content.Node, f *content.FileReference, c displayCap, zoom float64, p *message.Printer, sink content.Sink) {
	w, okW := f.Dimensions.Width()
	h, okH := f.Dimensions.Height()
	if !okW || !okH {
		return
	}
	width, height := float64(w), float64(h)

	tooHigh := c.height > 0 && height > c.height
	tooWide := c.width > 0 && width > c.width
	if !tooHigh && !tooWide {
		return
	}

	description := []string{resolutionLine(p, f)}
	if c.height > 0 {
		description = append(description, p.Sprintf("The image will usually not be displayed larger than %s pixels in height.", pixels(c.height)))
	}
	if c.width > 0 {
		description = append(description, p.Sprintf("The image will usually not be displayed larger than %s pixels in width.", pixels(c.width)))
	}

	var recommendation []string
	if c.height > 0 && height > c.height*zoom {
		recommendation = append(recommendation, p.Sprintf("The image could safely be scaled down to a height of %s pixels without any visual quality loss.", pixels(c.height*zoom)))
	}
	if c.width > 0 && width > c.width*zoom {
		recommendation = append(recommendation, p.Sprintf("The image could safely be scaled down to a width of %s pixels without any visual quality loss.", pixels(c.width*zoom)))
	}
	if tooHigh {
		recommendation = append(recommendation, p.Sprintf("The image could be scaled down to a height of %s pixels, but people who zoom into the page may experience a visual quality loss.", pixels(c.height)))
	}
	if tooWide {
		recommendation = append(recommendation, p.Sprintf("The image could be scaled down to a width of %s pixels, but people who zoom into the page may experience a visual quality loss.", pixels(c.width)))
	}

	content.ReportFile(sink, f, content.Message{
		Category:       content.CategoryEfficiency,
		Type:           TypeImageResolution,
		Level:          content.LevelWarning,
		Summary:        p.Sprintf("Image file inside %s could be scaled down.", tree.Describe(owner.ID, content.NodeDescription)),
		Description:    description,
		Recommendation: recommendation,
		Details:        fileDetails(tree, owner, f),
		SubContentID:   owner.SubContentID,
	})
}

func checkFileSize(tree *content.Tree, owner *content.Node, f *content.FileReference, media content.MediaIndex, t *Tables, p *message.Printer, sink content.Sink) {
	size, ok := media.Size(f.Path)
	if !ok {
		return
	}

	subtype := imageSubtype(f.MIME, f.Path, t)
	var limit int64
	if px, known := f.Dimensions.Pixels(); known {
		limit = t.curve(subtype).MaxBytes(px)
	} else {
		subtype = GenericCurve
		limit = t.curve(subtype).UnknownMaxBytes()
	}
	if size <= limit {
		return
	}

	typeName := p.Sprintf("unknown")
	if subtype != GenericCurve {
		typeName = strings.ToUpper(subtype)
	}

	recommendation := []string{
		p.Sprintf("For this image type, we recommend a maximum file size of %v bytes in a web based context.", number.Decimal(limit)),
		p.Sprintf("You might consider reducing the image's resolution if it does not need to be this high."),
	}
	if subtype == "jpeg" {
		recommendation = append(recommendation, p.Sprintf("You might consider reducing the quality level of the JPEG image."))
	} else {
		recommendation = append(recommendation, p.Sprintf("You might consider converting the image to a JPEG file which often take less space."))
	}

	content.ReportFile(sink, f, content.Message{
		Category: content.CategoryEfficiency,
		Type:     TypeImageSize,
		Level:    content.LevelWarning,
		Summary:  p.Sprintf("Image file inside %s feels quite large.", tree.Describe(owner.ID, content.NodeDescription)),
		Description: []string{
			resolutionLine(p, f),
			p.Sprintf("The image file size is %v bytes.", number.Decimal(size)),
			p.Sprintf("The image type is %s.", typeName),
		},
		Recommendation: recommendation,
		Details:        fileDetails(tree, owner, f),
		SubContentID:   owner.SubContentID,
	})
}

func (t *Tables) curve(subtype string) SizeCurve {
	if c, ok := t.SizeCurves[subtype]; ok {
		return c
	}
	return t.SizeCurves[GenericCurve]
}

// imageSubtype derives the size curve key from the MIME type, then the file suffix
func imageSubtype(mime, filePath string, t *Tables) string {
	subtype := ""
	if rest, ok := strings.CutPrefix(strings.ToLower(mime), "image/"); ok {
		subtype = rest
	} else if ext := path.Ext(filePath); ext != "" {
		subtype = strings.ToLower(ext[1:])
	}
	if subtype == "jpg" {
		subtype = "jpeg"
	}
	if _, ok := t.SizeCurves[subtype]; !ok || subtype == "" {
		return GenericCurve
	}
	return subtype
}

func fileDetails(tree *content.Tree, owner *content.Node, f *content.FileReference) content.Details {
	return content.Details{
		Path:          f.Path,
		SemanticsPath: f.SemanticsPath,
		Title:         tree.DescribeFile(f, "{title}"),
		SubContentID:  owner.SubContentID,
	}
}

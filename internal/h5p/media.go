/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package h5p

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/caretaker/internal/content"
	"github.com/fulmenhq/caretaker/pkg/logger"
)

// indexMedia records the size of every file below content/ and probes the
// pixel size of those matching probeGlob. Undecodable images keep unknown dimensions.
func indexMedia(ctx context.Context, src *source, probeGlob string) (content.MediaIndex, error) {
	if probeGlob != "" && !doublestar.ValidatePattern(probeGlob) {
		return nil, fmt.Errorf("invalid probe glob %q", probeGlob)
	}

	index := make(content.MediaIndex)
	for _, name := range src.names() {
		rel, ok := strings.CutPrefix(name, contentDir)
		if !ok || name == contentFile {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info := content.MediaInfo{Size: src.entries[name].size}
		if probeGlob != "" {
			if match, _ := doublestar.Match(probeGlob, rel); match {
				if d, err := probe(src, name); err != nil {
					logger.Debug(fmt.Sprintf("Cannot read image size of %s", rel), logger.Err(err))
				} else {
					info.Dimensions = d
				}
			}
		}
		index[rel] = info
	}
	return index, nil
}

func probe(src *source, name string) (content.Dimensions, error) {
	rc, err := src.entries[name].open()
	if err != nil {
		return content.Dimensions{}, err
	}
	defer func() { _ = rc.Close() }()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return content.Dimensions{}, err
	}
	d, ok := content.NewDimensions(cfg.Width, cfg.Height)
	if !ok {
		return content.Dimensions{}, fmt.Errorf("invalid size %dx%d", cfg.Width, cfg.Height)
	}
	return d, nil
}

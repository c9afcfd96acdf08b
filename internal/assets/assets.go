package assets

import (
	"embed"
	"io/fs"
)

//go:embed embedded_templates
var Templates embed.FS

//go:embed embedded_schemas
var Schemas embed.FS

// ReportTemplatePath is the Handlebars template used for HTML reports
const ReportTemplatePath = "report/report.html"

func GetTemplatesFS() fs.FS {
	if sub, err := fs.Sub(Templates, "embedded_templates"); err == nil {
		return sub
	}
	return Templates
}

func GetSchemasFS() fs.FS {
	if sub, err := fs.Sub(Schemas, "embedded_schemas"); err == nil {
		return sub
	}
	return Schemas
}

// GetTemplate returns an embedded template by path relative to embedded_templates
func GetTemplate(path string) ([]byte, error) {
	return fs.ReadFile(GetTemplatesFS(), path)
}

// GetEmbeddedAsset retrieves an embedded asset by path
func GetEmbeddedAsset(path string) ([]byte, error) {
	if data, err := fs.ReadFile(Templates, path); err == nil {
		return data, nil
	}
	if data, err := fs.ReadFile(Schemas, path); err == nil {
		return data, nil
	}
	return nil, fs.ErrNotExist
}

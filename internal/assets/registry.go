package assets

// Registry lists embedded assets available at runtime.
// Update this when adding/removing curated assets.

type AssetInfo struct {
	Family  string // e.g., schema, template
	Name    string // lookup name
	Version string // e.g., v1
	Path    string // embed path
}

var Registry = []AssetInfo{
	{
		Family:  "schema",
		Name:    "h5p-manifest-v1",
		Version: "v1",
		Path:    "embedded_schemas/h5p/h5p-manifest-v1.yaml",
	},
	{
		Family:  "schema",
		Name:    "caretaker-config-v1",
		Version: "v1",
		Path:    "embedded_schemas/config/caretaker-config-v1.yaml",
	},
	{
		Family:  "template",
		Name:    "report-html",
		Version: "v1",
		Path:    "embedded_templates/" + ReportTemplatePath,
	},
}

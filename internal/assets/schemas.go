package assets

import (
	"encoding/json"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaInfo holds schema metadata.
type SchemaInfo struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Draft string `json:"draft"`
}

// GetSchema returns the embedded schema bytes by path (e.g., "embedded_schemas/h5p/h5p-manifest-v1.yaml").
func GetSchema(relPath string) ([]byte, bool) {
	data, err := Schemas.ReadFile(relPath)
	return data, err == nil
}

// GetSchemaNames returns the embedded schemas listed in Registry, sorted by name.
func GetSchemaNames() []SchemaInfo {
	var infos []SchemaInfo
	for _, a := range Registry {
		if a.Family != "schema" {
			continue
		}
		if _, ok := GetSchema(a.Path); ok {
			infos = append(infos, SchemaInfo{Name: a.Name, Path: a.Path, Draft: detectDraft(a.Path)})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// SchemaPath returns the embed path of a named schema
func SchemaPath(name string) (string, bool) {
	for _, a := range Registry {
		if a.Family == "schema" && a.Name == name {
			return a.Path, true
		}
	}
	return "", false
}

// detectDraft heuristically detects draft from schema bytes via $schema key.
func detectDraft(path string) string {
	bytes, ok := GetSchema(path)
	if !ok {
		return "Unknown (07/2020-12 supported)"
	}
	var doc interface{}
	err := yaml.Unmarshal(bytes, &doc)
	if err != nil {
		err = json.Unmarshal(bytes, &doc)
		if err != nil {
			return "Unknown (07/2020-12 supported)"
		}
	}
	if m, ok := doc.(map[string]interface{}); ok {
		if v, ok := m["$schema"].(string); ok {
			if strings.Contains(v, "draft-07") {
				return "Draft-07"
			}
			if strings.Contains(v, "2020-12") {
				return "Draft-2020-12"
			}
		}
	}
	return "Unknown (07/2020-12 supported)"
}

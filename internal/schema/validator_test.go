package schema

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestValidate_Manifest(t *testing.T) {
	valid := []byte(`{
  "title": "Course",
  "language": "en",
  "mainLibrary": "H5P.Column",
  "embedTypes": ["iframe"],
  "license": "CC BY",
  "preloadedDependencies": [
    {"machineName": "H5P.Column", "majorVersion": 1, "minorVersion": 16},
    {"machineName": "H5P.Image", "majorVersion": "1", "minorVersion": "1"}
  ]
}`)
	res, err := ValidateJSON(valid, ManifestSchema)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid {
		t.Errorf("expected valid manifest, got errors: %v", res.Errors)
	}
	if res.Err() != nil {
		t.Errorf("Err() on valid result = %v", res.Err())
	}

	invalid := []byte(`{
  "title": "",
  "embedTypes": ["popup"],
  "preloadedDependencies": [{"machineName": "H5P.Column"}]
}`)
	res, err = ValidateJSON(invalid, ManifestSchema)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid {
		t.Fatal("expected invalid manifest")
	}
	joined := res.Err().Error()
	for _, want := range []string{"mainLibrary", "title", "embedTypes.0", "majorVersion"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected error mentioning %q, got %s", want, joined)
		}
	}
}

func TestValidate_Config(t *testing.T) {
	validYAML := `
report:
  format: markdown
  categories: [license, efficiency]
  fail_on: error
engine:
  concurrency: 4
`
	var validDoc interface{}
	if err := yaml.Unmarshal([]byte(validYAML), &validDoc); err != nil {
		t.Fatal(err)
	}
	res, err := Validate(validDoc, ConfigSchema)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid {
		t.Errorf("expected valid config, got errors: %v", res.Errors)
	}

	res, err = ValidateYAML([]byte("report:\n  format: pdf\nengine:\n  concurrency: -1\nextra: true\n"), ConfigSchema)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid || len(res.Errors) < 3 {
		t.Errorf("expected three validation errors, got %v", res.Errors)
	}

	res, err = ValidateYAML(nil, ConfigSchema)
	if err != nil || !res.Valid {
		t.Errorf("empty config should be valid: %v %v", res, err)
	}
}

func TestValidate_Errors(t *testing.T) {
	_, err := Validate(map[string]interface{}{}, "nonexistent")
	if err == nil || !strings.Contains(err.Error(), "not found in registry") {
		t.Errorf("expected schema not found error, got %v", err)
	}
	if _, err := ValidateJSON([]byte("{"), ManifestSchema); err == nil {
		t.Error("expected decode error")
	}
}

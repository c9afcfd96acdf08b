/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/caretaker/pkg/safeio"
)

// policyQuery is the rule every license policy module must define
const policyQuery = "data.caretaker.licenses.deny"

// LicensePolicy evaluates an embedded OPA policy against the licenses found in a package
type LicensePolicy struct {
	module string
	query  rego.PreparedEvalQuery
}

// PolicySubject is one licensed item handed to the policy
type PolicySubject struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Library string `json:"library,omitempty"`
	License string `json:"license"`
	Version string `json:"version,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Violation is a denied subject with the policy's explanation
type Violation struct {
	Index   int
	Message string
}

type policyFile struct {
	Licenses struct {
		Forbidden []string `yaml:"forbidden"`
	} `yaml:"licenses"`
}

// LoadLicensePolicy reads a policy file. YAML files list forbidden license codes
// under licenses.forbidden; .rego files are used as is.
func LoadLicensePolicy(ctx context.Context, path string) (*LicensePolicy, error) {
	data, err := safeio.ReadFileClean(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".rego") {
		return newLicensePolicy(ctx, string(data))
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	return NewLicensePolicy(ctx, pf.Licenses.Forbidden)
}

// NewLicensePolicy builds a policy that denies the given license codes
func NewLicensePolicy(ctx context.Context, forbidden []string) (*LicensePolicy, error) {
	return newLicensePolicy(ctx, transpileForbidden(forbidden))
}

func newLicensePolicy(ctx context.Context, module string) (*LicensePolicy, error) {
	query, err := rego.New(
		rego.Query(policyQuery),
		rego.Module("policy.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile license policy: %w", err)
	}
	return &LicensePolicy{module: module, query: query}, nil
}

// Module returns the Rego source of the policy
func (p *LicensePolicy) Module() string {
	return p.module
}

// transpileForbidden converts a forbidden list to Rego
func transpileForbidden(forbidden []string) string {
	var buf bytes.Buffer

	buf.WriteString("package caretaker.licenses\n\n")
	buf.WriteString("forbidden := ")
	buf.WriteString(formatRegoArray(forbidden))
	buf.WriteString("\n\n")
	buf.WriteString("deny contains result if {\n")
	buf.WriteString("  item := input.items[_]\n")
	buf.WriteString("  lower(forbidden[_]) == lower(item.license)\n")
	buf.WriteString("  result := {\"index\": item.index, \"msg\": sprintf(\"License %s is not allowed by policy\", [item.license])}\n")
	buf.WriteString("}\n")

	return buf.String()
}

// formatRegoArray converts a string list to a properly quoted Rego array
func formatRegoArray(arr []string) string {
	parts := make([]string, 0, len(arr))
	for _, item := range arr {
		quoted, _ := json.Marshal(strings.TrimSpace(item))
		parts = append(parts, string(quoted))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Evaluate returns the denied subjects
func (p *LicensePolicy) Evaluate(ctx context.Context, subjects []PolicySubject) ([]Violation, error) {
	items := make([]any, 0, len(subjects))
	for _, s := range subjects {
		items = append(items, map[string]any{
			"index":   s.Index,
			"kind":    s.Kind,
			"library": s.Library,
			"license": s.License,
			"version": s.Version,
			"path":    s.Path,
		})
	}

	rs, err := p.query.Eval(ctx, rego.EvalInput(map[string]any{"items": items}))
	if err != nil {
		return nil, fmt.Errorf("license policy evaluation failed: %w", err)
	}

	var violations []Violation
	for _, r := range rs {
		for _, expr := range r.Expressions {
			denials, ok := expr.Value.([]any)
			if !ok {
				continue
			}
			for _, d := range denials {
				if v, ok := parseViolation(d); ok {
					violations = append(violations, v)
				}
			}
		}
	}
	sort.SliceStable(violations, func(i, j int) bool { return violations[i].Index < violations[j].Index })
	return violations, nil
}

func parseViolation(v any) (Violation, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Violation{}, false
	}

	var index int
	switch n := obj["index"].(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return Violation{}, false
		}
		index = int(i)
	case float64:
		index = int(n)
	case int:
		index = n
	default:
		return Violation{}, false
	}

	msg, _ := obj["msg"].(string)
	return Violation{Index: index, Message: msg}, true
}

package config

import (
	"errors"
	"fmt"

	"github.com/fulmenhq/caretaker/internal/schema"
)

// ErrInvalidConfig marks configuration documents rejected by the schema
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateConfig checks a YAML or JSON configuration document against the
// embedded configuration schema. An empty document is valid.
func ValidateConfig(configData []byte) error {
	res, err := schema.ValidateYAML(configData, schema.ConfigSchema)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

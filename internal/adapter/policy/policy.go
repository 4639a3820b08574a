package policy

import (
	"fmt"

	"github.com/guillermoBallester/causeway/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Policy holds operator-controlled configuration loaded from a YAML file.
// It covers safety gate tuning, data dictionary context, and column-level
// PII masking.
type Policy struct {
	Safety  SafetyConfig  `yaml:"safety"`
	Context ContextConfig `yaml:"context"`
}

// SafetyConfig tunes the query safety gate. Empty keywords fall back to
// the built-in denylist; a zero default_limit falls back to the built-in
// row cap.
type SafetyConfig struct {
	BlockedKeywords []string `yaml:"blocked_keywords"`
	DefaultLimit    int      `yaml:"default_limit"`
}

// ContextConfig maps fully-qualified table names (schema.table) to
// business descriptions that are merged into MCP tool responses.
type ContextConfig struct {
	Tables map[string]TableContext `yaml:"tables"`
}

// TableContext provides business descriptions and masking rules for a table and its columns.
type TableContext struct {
	Description string                   `yaml:"description"`
	Columns     map[string]ColumnContext `yaml:"columns"`
}

// ColumnContext holds a column's business description and optional mask directive.
type ColumnContext struct {
	Description string          `yaml:"description"`
	Mask        domain.MaskType `yaml:"mask,omitempty"`
}

// UnmarshalYAML supports both the new struct format and the legacy plain-string format.
//
//	columns:
//	  email: "User email"           # legacy: plain string → ColumnContext{Description: "User email"}
//	  ssn:                          # new: struct with optional mask
//	    description: "SSN"
//	    mask: "redact"
func (cc *ColumnContext) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		cc.Description = value.Value
		return nil
	}
	// Decode as struct (avoid infinite recursion by using an alias type).
	type alias ColumnContext
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding column context: %w", err)
	}
	*cc = ColumnContext(a)
	return nil
}

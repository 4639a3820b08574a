package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/guillermoBallester/causeway/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a YAML policy file and returns a validated Policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var pol Policy
	if err := yaml.Unmarshal(data, &pol); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}

	if err := validate(&pol); err != nil {
		return nil, fmt.Errorf("validating policy: %w", err)
	}

	return &pol, nil
}

func validate(pol *Policy) error {
	if pol.Safety.DefaultLimit < 0 {
		return fmt.Errorf("safety.default_limit: must not be negative, got %d", pol.Safety.DefaultLimit)
	}
	for i, kw := range pol.Safety.BlockedKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("safety.blocked_keywords[%d] is empty", i)
		}
	}
	// Result masking matches by column name only, so the same column name
	// must not carry different masks in different tables.
	seenMasks := make(map[string]domain.MaskType)
	for key, tc := range pol.Context.Tables {
		if key == "" {
			return fmt.Errorf("context.tables contains an empty key")
		}
		for col, cc := range tc.Columns {
			if col == "" {
				return fmt.Errorf("context.tables[%q].columns contains an empty key", key)
			}
			if !cc.Mask.Valid() {
				return fmt.Errorf("context.tables[%q].columns[%q].mask: invalid value %q (allowed: redact, hash, partial, null)", key, col, cc.Mask)
			}
			if cc.Mask == "" {
				continue
			}
			if prev, ok := seenMasks[col]; ok && prev != cc.Mask {
				return fmt.Errorf("conflicting masks for column %q: %q vs %q", col, prev, cc.Mask)
			}
			seenMasks[col] = cc.Mask
		}
	}
	return nil
}

package domain

import (
	"crypto/sha256"
	"fmt"
)

// MaskType represents a column masking strategy from the policy file.
type MaskType string

const (
	MaskRedact  MaskType = "redact"
	MaskHash    MaskType = "hash"
	MaskPartial MaskType = "partial"
	MaskNull    MaskType = "null"
)

// Valid reports whether m is a recognised strategy. The zero value ""
// means "no mask" and is valid.
func (m MaskType) Valid() bool {
	switch m {
	case MaskRedact, MaskHash, MaskPartial, MaskNull, "":
		return true
	}
	return false
}

// ApplyMask transforms a value according to the mask type. Masked values
// may change type (hash and partial always yield strings). MaskNull
// returns nil, indistinguishable from SQL NULL.
func ApplyMask(value any, maskType MaskType) any {
	if value == nil {
		return nil
	}

	switch maskType {
	case MaskRedact:
		return "***"
	case MaskHash:
		h := sha256.Sum256([]byte(fmt.Sprintf("%v", value)))
		return fmt.Sprintf("%x", h)
	case MaskPartial:
		return maskPartial(value)
	case MaskNull:
		return nil
	default:
		return value
	}
}

// maskPartial reveals the last 4 characters and stars the rest.
// Operates on runes so multi-byte strings mask cleanly.
func maskPartial(value any) string {
	runes := []rune(fmt.Sprintf("%v", value))
	if len(runes) <= 4 {
		return "***" + string(runes)
	}
	out := make([]rune, len(runes))
	for i := range out {
		if i < len(runes)-4 {
			out[i] = '*'
		} else {
			out[i] = runes[i]
		}
	}
	return string(out)
}

// MaskRows applies column masks to result rows in place. Matching is by
// column name only, no table qualification.
func MaskRows(rows []map[string]any, masks map[string]MaskType) {
	if len(masks) == 0 {
		return
	}
	for _, row := range rows {
		for col, maskType := range masks {
			if val, ok := row[col]; ok {
				row[col] = ApplyMask(val, maskType)
			}
		}
	}
}

package policy

import (
	"context"

	"github.com/guillermoBallester/causeway/internal/core/domain"
	"github.com/guillermoBallester/causeway/internal/core/port"
)

// MaskingAnalyzer decorates a TableAnalyzer to mask SampleRows in analysis results.
type MaskingAnalyzer struct {
	inner port.TableAnalyzer
	masks map[string]domain.MaskType
}

// NewMaskingAnalyzer wraps an existing TableAnalyzer with column masking.
func NewMaskingAnalyzer(inner port.TableAnalyzer, masks map[string]domain.MaskType) *MaskingAnalyzer {
	return &MaskingAnalyzer{inner: inner, masks: masks}
}

func (a *MaskingAnalyzer) AnalyzeTable(ctx context.Context, schema, tableName string) (*port.TableAnalysis, error) {
	analysis, err := a.inner.AnalyzeTable(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}

	domain.MaskRows(analysis.SampleRows, a.masks)
	return analysis, nil
}

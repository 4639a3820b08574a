package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/causeway/internal/core/domain"
	"github.com/guillermoBallester/causeway/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type toolNameKey struct{}

// WithToolName returns a context carrying the MCP tool name for audit logging.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

func toolNameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(toolNameKey{}).(string); ok {
		return v
	}
	return ""
}

// slowQueryThreshold marks executions worth a performance note in memory.
const slowQueryThreshold = 5 * time.Second

// QueryService runs SQL through the safety gate (domain) and, when
// approved, through the executor (infrastructure). Every evaluation is
// audited; outcomes land in the learning memory.
type QueryService struct {
	gate     port.QueryGate
	executor port.QueryExecutor
	auditor  port.QueryAuditor
	memory   port.MemoryStore
	logger   *slog.Logger
	masks    map[string]domain.MaskType // column-name → mask-type (nil = no masking)
	tracer   trace.Tracer
	inst     port.Instrumentation
}

func NewQueryService(gate port.QueryGate, executor port.QueryExecutor, auditor port.QueryAuditor, memory port.MemoryStore, logger *slog.Logger, masks map[string]domain.MaskType, tracer trace.Tracer, inst port.Instrumentation) *QueryService {
	if memory == nil {
		memory = port.NoopMemory{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &QueryService{
		gate:     gate,
		executor: executor,
		auditor:  auditor,
		memory:   memory,
		logger:   logger,
		masks:    masks,
		tracer:   tracer,
		inst:     inst,
	}
}

// Execute evaluates the statement against the gate and, if allowed, runs
// the verdict's (possibly rewritten) text. A rejected verdict surfaces as
// an error wrapping domain.ErrBlocked; the executor is never reached.
func (s *QueryService) Execute(ctx context.Context, sql string) ([]map[string]any, error) {
	ctx, span := s.tracer.Start(ctx, "QueryService.Execute",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation.name", "query"),
			attribute.String("db.statement", sql),
		),
	)
	defer span.End()

	verdict := s.gate.Evaluate(sql)
	if !verdict.Allowed {
		s.logger.WarnContext(ctx, "query rejected by safety gate",
			slog.String("db.statement", sql),
			slog.String("gate.reason", verdict.Reason),
		)
		span.SetStatus(codes.Error, verdict.Reason)
		s.inst.IncrementQueriesBlocked(ctx)

		s.auditor.Record(ctx, port.AuditEntry{
			Tool:    toolNameFromCtx(ctx),
			SQL:     sql,
			Allowed: false,
			Reason:  verdict.Reason,
		})
		s.remember(ctx, "error_log",
			fmt.Sprintf("Unsafe query blocked: %s Reason: %s", truncate(sql, 100), verdict.Reason),
			map[string]string{"error_type": "unsafe_query"})

		return nil, fmt.Errorf("%w: %s", domain.ErrBlocked, verdict.Reason)
	}

	rewritten := ""
	if verdict.SQL != sql {
		rewritten = verdict.SQL
		span.SetAttributes(attribute.String("db.statement.rewritten", verdict.SQL))
	}

	start := time.Now()
	results, err := s.executor.Execute(ctx, verdict.SQL)
	duration := time.Since(start)
	durationMS := duration.Milliseconds()

	s.inst.RecordQueryDuration(ctx, float64(durationMS))

	s.auditor.Record(ctx, port.AuditEntry{
		Tool:         toolNameFromCtx(ctx),
		SQL:          sql,
		Rewritten:    rewritten,
		Allowed:      true,
		RowsReturned: len(results),
		DurationMS:   durationMS,
		Err:          err,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryErrors(ctx)
		s.remember(ctx, "error_solutions",
			fmt.Sprintf("Query failed with error: %v. Query: %s", err, truncate(sql, 100)),
			map[string]string{"error_type": "query_execution"})
		return results, err
	}

	s.inst.IncrementQueryCount(ctx)
	span.SetAttributes(attribute.Int("db.response.rows", len(results)))

	s.remember(ctx, "query_patterns",
		fmt.Sprintf("Query executed successfully in %dms: %s Returned %d rows.",
			durationMS, truncate(sql, 100), len(results)),
		map[string]string{"duration_ms": fmt.Sprintf("%d", durationMS)})
	if duration > slowQueryThreshold {
		s.remember(ctx, "performance_insights",
			fmt.Sprintf("Slow query detected (%dms): %s", durationMS, truncate(sql, 100)),
			map[string]string{"slow_query": "true"})
	}

	masks := domain.AliasedMasks(s.masks, domain.ExtractAliasMap(verdict.SQL))
	domain.MaskRows(results, masks)

	return results, nil
}

// remember stores a learning note best-effort; memory failures never fail
// the request.
func (s *QueryService) remember(ctx context.Context, category, content string, metadata map[string]string) {
	_, err := s.memory.Add(ctx, port.Note{
		UserID:   "system",
		Category: category,
		Content:  content,
		Metadata: metadata,
	})
	if err != nil {
		s.logger.DebugContext(ctx, "memory write failed",
			slog.String("category", category),
			slog.String("error.message", err.Error()),
		)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guillermoBallester/causeway/internal/adapter/mcp"
	"github.com/guillermoBallester/causeway/internal/adapter/memory"
	"github.com/guillermoBallester/causeway/internal/adapter/policy"
	"github.com/guillermoBallester/causeway/internal/adapter/postgres"
	"github.com/guillermoBallester/causeway/internal/audit"
	"github.com/guillermoBallester/causeway/internal/config"
	"github.com/guillermoBallester/causeway/internal/core/domain"
	"github.com/guillermoBallester/causeway/internal/core/port"
	"github.com/guillermoBallester/causeway/internal/core/service"
	"github.com/guillermoBallester/causeway/internal/telemetry"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses CLI arguments into config overrides. Pointer fields are
// only set for flags that were actually passed, so unset flags never clobber
// environment variables.
func parseFlags(args []string) (config.Overrides, error) {
	fs := flag.NewFlagSet("causeway", flag.ContinueOnError)

	databaseURL := fs.String("database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	maxRows := fs.Int("max-rows", 0, "default row limit appended to unbounded SELECTs (overrides MAX_ROWS)")
	queryTimeout := fs.Duration("query-timeout", 0, "per-query statement timeout (overrides QUERY_TIMEOUT)")
	policyFile := fs.String("policy-file", "", "path to policy YAML (overrides POLICY_FILE)")
	memoryPath := fs.String("memory-path", "", "path to the SQLite learning memory (overrides MEMORY_PATH)")
	transport := fs.String("transport", "", `transport: "stdio" or "http" (overrides TRANSPORT)`)
	httpAddr := fs.String("http-addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	httpBearerToken := fs.String("http-bearer-token", "", "bearer token for HTTP transport (overrides HTTP_BEARER_TOKEN)")
	poolMaxConns := fs.Int("pool-max-conns", 0, "max pool connections (overrides POOL_MAX_CONNS)")
	poolMinConns := fs.Int("pool-min-conns", -1, "min pool connections (overrides POOL_MIN_CONNS)")
	poolMaxConnLifetime := fs.Duration("pool-max-conn-lifetime", 0, "max connection lifetime (overrides POOL_MAX_CONN_LIFETIME)")
	otelEnabled := fs.Bool("otel", false, "enable OpenTelemetry tracing and metrics")
	dryRun := fs.Bool("dry-run", false, "validate config and database connectivity, then exit")
	explainOnly := fs.Bool("explain-only", false, "run every query through EXPLAIN instead of executing it")
	auditLog := fs.String("audit-log", "", "path to NDJSON audit log file")

	if err := fs.Parse(args); err != nil {
		return config.Overrides{}, err
	}

	o := config.Overrides{
		OTelEnabled: *otelEnabled,
		DryRun:      *dryRun,
		ExplainOnly: *explainOnly,
		AuditLog:    *auditLog,
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "database-url":
			o.DatabaseURL = databaseURL
		case "log-level":
			o.LogLevel = logLevel
		case "max-rows":
			o.MaxRows = maxRows
		case "query-timeout":
			o.QueryTimeout = queryTimeout
		case "policy-file":
			o.PolicyFile = policyFile
		case "memory-path":
			o.MemoryPath = memoryPath
		case "transport":
			o.Transport = transport
		case "http-addr":
			o.HTTPAddr = httpAddr
		case "http-bearer-token":
			o.HTTPBearerToken = httpBearerToken
		case "pool-max-conns":
			v := int32(*poolMaxConns)
			o.PoolMaxConns = &v
		case "pool-min-conns":
			v := int32(*poolMinConns)
			o.PoolMinConns = &v
		case "pool-max-conn-lifetime":
			o.PoolMaxConnLifetime = poolMaxConnLifetime
		}
	})

	return o, nil
}

func run(args []string) error {
	overrides, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr — stdout is reserved for the MCP stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	logger.Info("starting causeway",
		slog.String("version", version),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.String("database_url", redactDSN(cfg.DatabaseURL)),
		slog.Bool("read_only", cfg.ReadOnly),
		slog.Int("max_rows", cfg.MaxRows),
		slog.String("query_timeout", cfg.QueryTimeout.String()),
		slog.String("transport", cfg.Transport),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Telemetry (optional).
	tracer := telemetry.NoopTracer()
	instruments := telemetry.NoopInstruments()
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, "causeway", version)
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown failed", slog.String("error.message", err.Error()))
			}
		}()
		tracer = otel.Tracer("causeway")
		instruments = telemetry.NewInstruments()
		logger.Info("telemetry enabled")
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{
		MaxConns:        cfg.PoolMaxConns,
		MinConns:        cfg.PoolMinConns,
		MaxConnLifetime: cfg.PoolMaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	logger.Info("database pool connected", slog.String("db.system", "postgresql"))

	// Adapters.
	var explorer port.SchemaExplorer = postgres.NewExplorer(pool, cfg.Schemas)
	var analyzer port.TableAnalyzer = postgres.NewAnalyzer(pool, cfg.Schemas)
	var executor port.QueryExecutor = postgres.NewExecutor(pool, cfg.ReadOnly, cfg.QueryTimeout)
	if cfg.ExplainOnly {
		executor = postgres.NewExplainOnlyExecutor(executor)
		logger.Info("explain-only mode: queries run through EXPLAIN")
	}

	// Safety gate: the policy file may replace the keyword denylist and
	// the default row limit; otherwise both fall back to built-in defaults.
	gateKeywords := []string(nil)
	gateLimit := cfg.MaxRows
	var masks map[string]domain.MaskType

	if cfg.PolicyFile != "" {
		pol, err := policy.LoadFromFile(cfg.PolicyFile)
		if err != nil {
			return fmt.Errorf("loading policy: %w", err)
		}
		gateKeywords = pol.Safety.BlockedKeywords
		if pol.Safety.DefaultLimit > 0 {
			gateLimit = pol.Safety.DefaultLimit
		}
		masks = policy.MaskSpec(pol.Context)
		explorer = policy.NewPolicyExplorer(explorer, pol)
		analyzer = policy.NewMaskingAnalyzer(analyzer, masks)
		logger.Info("policy loaded",
			slog.String("file", cfg.PolicyFile),
			slog.Int("blocked_keywords", len(gateKeywords)),
			slog.Int("masked_columns", len(masks)),
		)
	}

	gate := domain.NewGate(gateKeywords, gateLimit)

	// Auditor.
	var auditor port.QueryAuditor = audit.NoopAuditor{}
	if cfg.AuditLog != "" {
		fileAuditor, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		auditor = fileAuditor
		logger.Info("audit log enabled", slog.String("file", cfg.AuditLog))
	}
	defer func() {
		if err := auditor.Close(); err != nil {
			logger.Error("closing audit log failed", slog.String("error.message", err.Error()))
		}
	}()

	// Learning memory (optional).
	var store port.MemoryStore
	if cfg.MemoryPath != "" {
		sqliteStore, err := memory.Open(cfg.MemoryPath)
		if err != nil {
			return fmt.Errorf("opening memory store: %w", err)
		}
		defer func() { _ = sqliteStore.Close() }()
		store = sqliteStore
		logger.Info("learning memory enabled", slog.String("path", cfg.MemoryPath))
	}

	// Services.
	svcs := mcp.Services{
		Explorer: service.NewExplorerService(explorer, store, logger),
		Analysis: service.NewAnalysisService(analyzer, store, logger),
		Query:    service.NewQueryService(gate, executor, auditor, store, logger, masks, tracer, instruments),
	}
	if store != nil {
		svcs.Memory = service.NewMemoryService(store)
	}

	if cfg.DryRun {
		logger.Info("dry run: config valid, database reachable")
		return nil
	}

	// MCP server with tool handlers.
	mcpServer := mcp.NewServer(version, svcs, logger, tracer, instruments)

	if cfg.Transport == "http" {
		return serveHTTP(ctx, mcpServer, cfg, logger)
	}

	// Run MCP over stdio (stdin/stdout).
	stdioServer := mcpserver.NewStdioServer(mcpServer)

	logger.Info("serving MCP over stdio")
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("stdio server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// redactDSN replaces the password in a connection string for safe logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "***"
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

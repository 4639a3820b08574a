package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/causeway/internal/core/port"
	"github.com/guillermoBallester/causeway/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "causeway"

// Tool descriptions
const (
	descConnectionInfo = "Show connection details for the current database: database name, user, " +
		"server version, and how many tables are visible. " +
		"Call this first to confirm you are talking to the right database."

	descListSchemas = "List all available database schemas. " +
		"Call this first to discover what schemas exist before listing tables or describing them."

	descListTables = "List all tables and views with schema, type, estimated row count, total size, column count, " +
		"and whether indexes exist. Use this to understand the database landscape; " +
		"table sizes tell you which tables are large (avoid SELECT * on them) and " +
		"row estimates help you plan queries with appropriate LIMIT clauses."

	descDescribeTable = "Describe a table's full structure including: columns with types, nullability, defaults, and comments; " +
		"column-level statistics from pg_stats (cardinality classification, null rates, enum-like values with frequencies, " +
		"value ranges for dates/numbers); primary keys; foreign keys with referenced tables; indexes; " +
		"check constraints; row estimate; table size; and statistics freshness. " +
		"Use this to understand a table before writing queries. " +
		"Pay attention to: foreign keys for JOIN paths; cardinality to know what to GROUP BY vs filter; " +
		"enum-like columns show the allowed values; value ranges show date spans and numeric scales; " +
		"null rates help you handle NULLs correctly in filters and JOINs."

	descDescribeTableParam = "Name of the table to describe"

	descAnalyzeTable = "Deep-analyze a single table: sample rows, per-column numeric summaries (count/min/max/mean/stddev), " +
		"disk size breakdown (table/indexes/TOAST), " +
		"index usage statistics (which indexes are actually used vs unused), " +
		"inferred foreign key relationships (detected from naming patterns like *_id), " +
		"and statistics freshness warnings. " +
		"Use this when you need deeper analysis than describe_table provides; " +
		"for example, to see actual data patterns in sample rows, find unused indexes, " +
		"or discover implicit relationships in databases without explicit foreign keys."

	descAnalyzeTableParam = "Name of the table to analyze"

	descQuery = "Execute a read-only SQL query against the database and return results as a JSON array of objects. " +
		"Statements containing destructive keywords (DROP, DELETE, UPDATE, and similar) are rejected, " +
		"as are stacked statements separated by semicolons. " +
		"Unbounded SELECTs get a server-side LIMIT appended automatically; a query timeout is enforced. " +
		"Always use specific column names instead of SELECT *. " +
		"Use JOINs based on foreign keys discovered via describe_table. " +
		"Check column cardinality from describe_table to write efficient WHERE and GROUP BY clauses."

	descQueryParam = "SQL query to execute (SELECT statements only)"

	descExplainQuery = "Show the PostgreSQL execution plan for a SQL query. " +
		"Returns the query planner's strategy including scan types, join methods, and cost estimates. " +
		"Use this to understand query performance before or after running a query. " +
		"Supports ANALYZE to include actual execution statistics (the query WILL be executed)."

	descExplainQuerySQL = "The SELECT query to explain (without the EXPLAIN keyword)"

	descMemorySave = "Save a note to the server's learning memory. " +
		"Use this to record facts worth remembering across sessions: which queries worked, " +
		"what a confusing column actually means, or how an error was resolved."

	descMemorySearch = "Full-text search over the server's learning memory. " +
		"Returns previously saved notes ranked by relevance. " +
		"Search before writing complex queries; past sessions may have already solved the same problem."

	descMemoryInsights = "Summarize what the learning memory has accumulated: note counts per category, " +
		"recurring keywords from recent notes, and suggestions derived from error and performance patterns."
)

func RegisterTools(s *server.MCPServer, svcs Services, logger *slog.Logger) {
	s.AddTool(
		mcp.NewTool("connection_info",
			mcp.WithDescription(descConnectionInfo),
		),
		connectionInfoHandler(svcs.Explorer, logger),
	)

	s.AddTool(
		mcp.NewTool("list_schemas",
			mcp.WithDescription(descListSchemas),
		),
		listSchemasHandler(svcs.Explorer, logger),
	)

	s.AddTool(
		mcp.NewTool("list_tables",
			mcp.WithDescription(descListTables),
		),
		listTablesHandler(svcs.Explorer, logger),
	)

	s.AddTool(
		mcp.NewTool("describe_table",
			mcp.WithDescription(descDescribeTable),
			mcp.WithString("table_name",
				mcp.Required(),
				mcp.Description(descDescribeTableParam),
			),
			mcp.WithString("schema",
				mcp.Description("Schema name (optional, resolves automatically if omitted)"),
			),
		),
		describeTableHandler(svcs.Explorer, logger),
	)

	if svcs.Analysis != nil {
		s.AddTool(
			mcp.NewTool("analyze_table",
				mcp.WithDescription(descAnalyzeTable),
				mcp.WithString("table_name",
					mcp.Required(),
					mcp.Description(descAnalyzeTableParam),
				),
				mcp.WithString("schema",
					mcp.Description("Schema name (optional, resolves automatically if omitted)"),
				),
			),
			analyzeTableHandler(svcs.Analysis, logger),
		)
	}

	s.AddTool(
		mcp.NewTool("query",
			mcp.WithDescription(descQuery),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(descQueryParam),
			),
		),
		queryHandler(svcs.Query, logger),
	)

	s.AddTool(
		mcp.NewTool("explain_query",
			mcp.WithDescription(descExplainQuery),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(descExplainQuerySQL),
			),
			mcp.WithBoolean("analyze",
				mcp.Description("Include actual execution statistics (executes the query). Defaults to false."),
			),
		),
		explainQueryHandler(svcs.Query, logger),
	)

	if svcs.Memory != nil {
		registerMemoryTools(s, svcs.Memory, logger)
	}
}

func registerMemoryTools(s *server.MCPServer, memory *service.MemoryService, logger *slog.Logger) {
	s.AddTool(
		mcp.NewTool("memory_save",
			mcp.WithDescription(descMemorySave),
			mcp.WithString("content",
				mcp.Required(),
				mcp.Description("The note text to remember"),
			),
			mcp.WithString("category",
				mcp.Description("Note category (e.g. query_patterns, error_solutions). Defaults to \"general\"."),
			),
		),
		memorySaveHandler(memory, logger),
	)

	s.AddTool(
		mcp.NewTool("memory_search",
			mcp.WithDescription(descMemorySearch),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Full-text search terms"),
			),
			mcp.WithString("category",
				mcp.Description("Restrict results to one category (optional)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of notes to return. Defaults to 10."),
			),
		),
		memorySearchHandler(memory, logger),
	)

	s.AddTool(
		mcp.NewTool("memory_insights",
			mcp.WithDescription(descMemoryInsights),
			mcp.WithString("category",
				mcp.Description("Restrict keyword analysis to one category (optional)"),
			),
		),
		memoryInsightsHandler(memory, logger),
	)
}

func connectionInfoHandler(explorer *service.ExplorerService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, err := explorer.ConnectionInfo(ctx)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "connection info")), nil
		}
		return marshalResult(logger, info)
	}
}

func listSchemasHandler(explorer *service.ExplorerService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schemas, err := explorer.ListSchemas(ctx)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "list schemas")), nil
		}
		return marshalResult(logger, schemas)
	}
}

func listTablesHandler(explorer *service.ExplorerService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tables, err := explorer.ListTables(ctx)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "list tables")), nil
		}
		return marshalResult(logger, tables)
	}
}

func describeTableHandler(explorer *service.ExplorerService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, ok := request.GetArguments()["table_name"].(string)
		if !ok || tableName == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}

		schema, _ := request.GetArguments()["schema"].(string)

		detail, err := explorer.DescribeTable(ctx, schema, tableName)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "describe table")), nil
		}
		return marshalResult(logger, detail)
	}
}

func analyzeTableHandler(analysis *service.AnalysisService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, ok := request.GetArguments()["table_name"].(string)
		if !ok || tableName == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}

		schema, _ := request.GetArguments()["schema"].(string)

		result, err := analysis.AnalyzeTable(ctx, schema, tableName)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "analyze table")), nil
		}
		return marshalResult(logger, result)
	}
}

func queryHandler(query *service.QueryService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		ctx = service.WithToolName(ctx, "query")
		results, err := query.Execute(ctx, sql)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "query")), nil
		}
		return marshalResult(logger, results)
	}
}

func explainQueryHandler(query *service.QueryService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		analyze, _ := request.GetArguments()["analyze"].(bool)

		prefix := "EXPLAIN "
		if analyze {
			prefix = "EXPLAIN ANALYZE "
		}

		ctx = service.WithToolName(ctx, "explain_query")
		results, err := query.Execute(ctx, prefix+sql)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "explain")), nil
		}
		return marshalResult(logger, results)
	}
}

func memorySaveHandler(memory *service.MemoryService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, ok := request.GetArguments()["content"].(string)
		if !ok || content == "" {
			return mcp.NewToolResultError("content is required"), nil
		}

		category, _ := request.GetArguments()["category"].(string)

		id, err := memory.Save(ctx, port.Note{Category: category, Content: content})
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "memory save")), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(`{"id":%d,"saved":true}`, id)), nil
	}
}

func memorySearchHandler(memory *service.MemoryService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queryText, ok := request.GetArguments()["query"].(string)
		if !ok || queryText == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		category, _ := request.GetArguments()["category"].(string)
		limit := 0
		if v, ok := request.GetArguments()["limit"].(float64); ok {
			limit = int(v)
		}

		matches, err := memory.Search(ctx, queryText, port.NoteSearchOptions{
			Category: category,
			Limit:    limit,
		})
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "memory search")), nil
		}
		return marshalResult(logger, matches)
	}
}

func memoryInsightsHandler(memory *service.MemoryService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category, _ := request.GetArguments()["category"].(string)

		report, err := memory.Insights(ctx, category)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "memory insights")), nil
		}
		return marshalResult(logger, report)
	}
}

func marshalResult(logger *slog.Logger, v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(sanitizeError(logger, err, "marshal results")), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

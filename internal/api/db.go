package api

import (
	"context"
	"database/sql"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-pod/internal/db"
)

// DBHandler handles the history database endpoints.
type DBHandler struct {
	db      *sql.DB
	history *db.History
}

// NewDBHandler creates a new database handler. Either argument may be nil
// when DuckDB is unavailable.
func NewDBHandler(conn *sql.DB, history *db.History) *DBHandler {
	return &DBHandler{db: conn, history: history}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("history"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("history"))
	huma.Get(api, "/api/v1/history/layouts", h.Layouts, huma.OperationTags("history"))
	huma.Get(api, "/api/v1/history/validations", h.Validations, huma.OperationTags("history"))
}

type TablesBody struct {
	Tables []string `json:"tables" doc:"List of table names"`
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*struct{ Body TablesBody }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}
	return &struct{ Body TablesBody }{Body: TablesBody{Tables: tables}}, nil
}

type QueryInput struct {
	Body struct {
		Query string `json:"query" minLength:"1" doc:"Read-only SQL query to execute" example:"SELECT product, count(*) FROM layouts GROUP BY product"`
	}
}

type QueryBody struct {
	Columns []string         `json:"columns" doc:"Column names"`
	Rows    []map[string]any `json:"rows" doc:"Query results"`
	Count   int              `json:"count" doc:"Number of rows returned"`
}

var readOnlyPrefixes = []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "SUMMARIZE", "EXPLAIN", "FROM"}

// readOnly reports whether q is a single statement that only reads.
func readOnly(q string) bool {
	q = strings.TrimRight(strings.TrimSpace(q), "; \n\t")
	if strings.Contains(q, ";") {
		return false
	}
	q = strings.ToUpper(q)
	for _, p := range readOnlyPrefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return false
}

// Query executes a read-only SQL query against the history database.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*struct{ Body QueryBody }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	if !readOnly(input.Body.Query) {
		return nil, huma.Error400BadRequest("Only single read-only statements are allowed")
	}

	rows, err := h.db.QueryContext(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get columns", err)
	}

	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			continue
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	return &struct{ Body QueryBody }{Body: QueryBody{Columns: columns, Rows: results, Count: len(results)}}, nil
}

type HistoryInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"1000" default:"50"`
}

// Layouts returns the most recent layouts.
func (h *DBHandler) Layouts(ctx context.Context, input *HistoryInput) (*struct{ Body []db.LayoutRecord }, error) {
	if h.history == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	recs, err := h.history.Layouts(ctx, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read layouts", err)
	}
	return &struct{ Body []db.LayoutRecord }{Body: recs}, nil
}

// Validations returns the most recent validation runs.
func (h *DBHandler) Validations(ctx context.Context, input *HistoryInput) (*struct{ Body []db.ValidationRecord }, error) {
	if h.history == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	recs, err := h.history.Validations(ctx, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read validations", err)
	}
	return &struct{ Body []db.ValidationRecord }{Body: recs}, nil
}

package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/vizlake/vizlake/pkg/apierr"
)

// DuckLoader reads delimited text, newline-delimited JSON and Parquet files
// through an in-memory DuckDB instance. Format is inferred from the file
// extension; unsupported extensions fail with an invalid-request error
// naming the extension.
type DuckLoader struct {
	log *slog.Logger
	db  *sql.DB
}

func NewDuckLoader(log *slog.Logger) (*DuckLoader, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &DuckLoader{log: log, db: db}, nil
}

func (l *DuckLoader) Close() error {
	return l.db.Close()
}

// readFunction maps a file extension to the DuckDB table function reading it.
func readFunction(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	quoted := strings.ReplaceAll(path, "'", "''")
	switch ext {
	case ".csv":
		return fmt.Sprintf(`read_csv('%s', delim=',', header=true)`, quoted), nil
	case ".tsv":
		return fmt.Sprintf(`read_csv('%s', delim='\t', header=true)`, quoted), nil
	case ".json", ".ndjson":
		return fmt.Sprintf(`read_ndjson_auto('%s')`, quoted), nil
	case ".parquet":
		return fmt.Sprintf(`read_parquet('%s')`, quoted), nil
	default:
		return "", apierr.InvalidRequest(fmt.Sprintf("unsupported file type: %s", ext))
	}
}

// Load materializes the file at path into a Table.
func (l *DuckLoader) Load(ctx context.Context, path string) (*Table, error) {
	source, err := readFunction(path)
	if err != nil {
		return nil, err
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, "SELECT * FROM "+source)
	if err != nil {
		return nil, apierr.InvalidRequest(fmt.Sprintf("failed to read dataset: %v", err)).WithCause(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	table := &Table{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = values[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	l.log.Debug("dataset: loaded", "path", path, "rows", len(table.Rows), "columns", len(columns))
	return table, nil
}

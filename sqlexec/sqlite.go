package sqlexec

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteExecutor implements Executor over an sqlx SQLite connection. The
// connection stays in autocommit; every statement is its own transaction.
type SQLiteExecutor struct {
	db *sqlx.DB
}

// NewSQLiteExecutor wraps an open SQLite connection. The connection is
// managed by the caller and is not closed by the executor.
func NewSQLiteExecutor(db *sqlx.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db}
}

func (e *SQLiteExecutor) Query(sql string, args ...interface{}) (*Cursor, error) {
	rows, err := e.db.Query(sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	columns := make([]Column, len(columnTypes))
	for i, ct := range columnTypes {
		col := Column{Name: ct.Name()}
		if declType := ct.DatabaseTypeName(); declType != "" {
			col.DeclType = &declType
		}
		columns[i] = col
	}

	var results [][]interface{}
	scanArgs := make([]interface{}, len(columns))
	scanPtrs := make([]interface{}, len(columns))
	for i := range scanArgs {
		scanPtrs[i] = &scanArgs[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanPtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]interface{}, len(scanArgs))
		for i, val := range scanArgs {
			// Copy []byte out of the driver's buffer; it is reused on
			// the next Scan.
			if b, ok := val.([]byte); ok {
				cp := make([]byte, len(b))
				copy(cp, b)
				row[i] = cp
			} else {
				row[i] = val
			}
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &Cursor{Columns: columns, Rows: results}, nil
}

func (e *SQLiteExecutor) Exec(sql string, args ...interface{}) (ExecResult, error) {
	res, err := e.db.Exec(sql, args...)
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec failed: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec failed: %w", err)
	}
	lastInsertID, err := res.LastInsertId()
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec failed: %w", err)
	}

	return ExecResult{RowsAffected: rowsAffected, LastInsertID: lastInsertID}, nil
}

func (e *SQLiteExecutor) ExecScript(sql string) error {
	// The sqlite3 driver executes all statements in the string when no
	// parameters are bound.
	if _, err := e.db.Exec(sql); err != nil {
		return fmt.Errorf("script failed: %w", err)
	}
	return nil
}

// Package sqlexec defines the backend executor the protocol server runs
// statements against, and provides an implementation on top of an SQLite
// database opened through sqlx.
//
// The executor owns no protocol state; it is a plain query/exec surface.
// Callers are expected to serialize access to a single executor instance.
package sqlexec

// Column describes one result column. DeclType is the declared SQLite type
// of the column if the driver reports one, or nil.
type Column struct {
	Name     string
	DeclType *string
}

// Cursor is a fully materialized query result. Row values are native Go
// values as produced by the driver: int64, float64, string, []byte or nil.
type Cursor struct {
	Columns []Column
	Rows    [][]interface{}
}

// ExecResult carries the driver-reported counters for a write statement.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// Executor is the backend the protocol server executes against.
type Executor interface {
	// Query runs a statement expected to produce rows and materializes the
	// full result set.
	Query(sql string, args ...interface{}) (*Cursor, error)

	// Exec runs a statement for its side effects and returns the driver's
	// affected-row count and last insert rowid.
	Exec(sql string, args ...interface{}) (ExecResult, error)

	// ExecScript runs a multi-statement SQL script. No results are
	// returned.
	ExecScript(sql string) error
}

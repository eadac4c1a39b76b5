package hrana

import (
	"fmt"
	"testing"

	"github.com/tomyedwab/libsqlhttp/sqlexec"
)

// fakeExecutor records the statements it receives and replays canned
// responses. Used by the executor and pipeline tests; the router tests run
// against a real SQLite backend.
type fakeExecutor struct {
	queries   []string
	execs     []string
	scripts   []string
	lastArgs  []interface{}
	queryRes  *sqlexec.Cursor
	execRes   sqlexec.ExecResult
	failWith  error
	failOnSQL string
}

func (f *fakeExecutor) Query(sql string, args ...interface{}) (*sqlexec.Cursor, error) {
	f.queries = append(f.queries, sql)
	f.lastArgs = args
	if f.failWith != nil && (f.failOnSQL == "" || f.failOnSQL == sql) {
		return nil, f.failWith
	}
	if f.queryRes != nil {
		return f.queryRes, nil
	}
	return &sqlexec.Cursor{}, nil
}

func (f *fakeExecutor) Exec(sql string, args ...interface{}) (sqlexec.ExecResult, error) {
	f.execs = append(f.execs, sql)
	f.lastArgs = args
	if f.failWith != nil && (f.failOnSQL == "" || f.failOnSQL == sql) {
		return sqlexec.ExecResult{}, f.failWith
	}
	return f.execRes, nil
}

func (f *fakeExecutor) ExecScript(sql string) error {
	f.scripts = append(f.scripts, sql)
	if f.failWith != nil && (f.failOnSQL == "" || f.failOnSQL == sql) {
		return f.failWith
	}
	return nil
}

func TestClassifySQL(t *testing.T) {
	tests := []struct {
		sql  string
		want stmtClass
	}{
		{"SELECT 1", classRead},
		{"  select * from t", classRead},
		{"PRAGMA user_version", classRead},
		{"EXPLAIN SELECT 1", classRead},
		{"INSERT INTO t VALUES (1)", classWrite},
		{"update t set x = 1", classWrite},
		{"DELETE FROM t", classWrite},
		{"CREATE TABLE t(x)", classWrite},
		{"DROP TABLE t", classWrite},
		{"ALTER TABLE t ADD COLUMN y", classWrite},
		{"BEGIN", classTxControl},
		{"BEGIN IMMEDIATE", classTxControl},
		{"begin;", classTxControl},
		{"COMMIT", classTxControl},
		{"ROLLBACK", classTxControl},
		{"SAVEPOINT sp1", classTxControl},
		{"RELEASE sp1", classTxControl},
		{"\n\tCOMMIT\n", classTxControl},
	}

	for _, tc := range tests {
		if got := classifySQL(tc.sql); got != tc.want {
			t.Errorf("classifySQL(%q) = %v, want %v", tc.sql, got, tc.want)
		}
	}
}

func TestTxControlInterception(t *testing.T) {
	backend := &fakeExecutor{}
	for _, sql := range []string{"BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT sp", "RELEASE sp"} {
		out, err := executeStmt(backend, sql, nil)
		if err != nil {
			t.Fatalf("executeStmt(%q) returned error: %v", sql, err)
		}
		if len(out.columns) != 0 || len(out.rows) != 0 || out.affectedRows != 0 || out.lastInsertRowID != nil {
			t.Errorf("executeStmt(%q) did not return an empty result: %+v", sql, out)
		}
	}
	if len(backend.queries) != 0 || len(backend.execs) != 0 {
		t.Errorf("transaction control reached the backend: queries=%v execs=%v", backend.queries, backend.execs)
	}

	// A following INSERT still hits the backend.
	if _, err := executeStmt(backend, "INSERT INTO t VALUES (1)", nil); err != nil {
		t.Fatalf("INSERT returned error: %v", err)
	}
	if len(backend.execs) != 1 {
		t.Fatalf("INSERT did not reach the backend: %v", backend.execs)
	}
}

func TestExecuteWrite(t *testing.T) {
	backend := &fakeExecutor{execRes: sqlexec.ExecResult{RowsAffected: 3, LastInsertID: 17}}

	out, err := executeStmt(backend, "INSERT INTO t(v) VALUES (?)", []interface{}{int64(1)})
	if err != nil {
		t.Fatalf("executeStmt returned error: %v", err)
	}
	if out.affectedRows != 3 {
		t.Errorf("affectedRows = %d, want 3", out.affectedRows)
	}
	if out.lastInsertRowID == nil || *out.lastInsertRowID != 17 {
		t.Errorf("lastInsertRowID = %v, want 17", out.lastInsertRowID)
	}
	if out.rowsWritten != 1 {
		t.Errorf("rowsWritten = %d, want 1", out.rowsWritten)
	}

	// Non-INSERT writes do not report a rowid.
	out, err = executeStmt(backend, "UPDATE t SET v = 1", nil)
	if err != nil {
		t.Fatalf("executeStmt returned error: %v", err)
	}
	if out.lastInsertRowID != nil {
		t.Errorf("UPDATE reported lastInsertRowID = %v", *out.lastInsertRowID)
	}
}

func TestExecuteRead(t *testing.T) {
	decl := "TEXT"
	backend := &fakeExecutor{queryRes: &sqlexec.Cursor{
		Columns: []sqlexec.Column{{Name: "x"}, {Name: "y", DeclType: &decl}},
		Rows: [][]interface{}{
			{int64(1), "a"},
			{int64(2), nil},
		},
	}}

	out, err := executeStmt(backend, "SELECT x, y FROM t", nil)
	if err != nil {
		t.Fatalf("executeStmt returned error: %v", err)
	}
	if len(out.columns) != 2 || out.columns[0].Name != "x" {
		t.Fatalf("unexpected columns: %+v", out.columns)
	}
	if out.rowsRead != 2 {
		t.Errorf("rowsRead = %d, want 2", out.rowsRead)
	}
	if out.rows[1][1].Kind != KindNull {
		t.Errorf("row[1][1] kind = %v, want null", out.rows[1][1].Kind)
	}
	if out.affectedRows != 0 || out.rowsWritten != 0 {
		t.Errorf("read reported write counters: %+v", out)
	}
}

func TestExecuteFailure(t *testing.T) {
	backend := &fakeExecutor{failWith: fmt.Errorf("no such table: t")}
	if _, err := executeStmt(backend, "SELECT * FROM t", nil); err == nil {
		t.Fatal("executeStmt succeeded, want error")
	}
}

func TestStmtResultVersionMetadata(t *testing.T) {
	out := &execOutcome{rowsRead: 2}

	v2 := out.toStmtResult(V2)
	if v2.RowsRead != nil || v2.RowsWritten != nil || v2.QueryDurationMS != nil {
		t.Errorf("v2 result carries v3 metadata: %+v", v2)
	}

	v3 := out.toStmtResult(V3)
	if v3.RowsRead == nil || *v3.RowsRead != 2 {
		t.Errorf("v3 rows_read = %v, want 2", v3.RowsRead)
	}
	if v3.RowsWritten == nil || v3.QueryDurationMS == nil {
		t.Errorf("v3 result is missing metadata: %+v", v3)
	}
}

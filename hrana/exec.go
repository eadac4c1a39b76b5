package hrana

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomyedwab/libsqlhttp/sqlexec"
)

type stmtClass int

const (
	classRead stmtClass = iota
	classWrite
	classTxControl
)

// txControlPrefixes are the statements the backend cannot accept because it
// runs every statement in its own implicit transaction. They are intercepted
// and answered with an empty result so clients that speculatively emit them
// keep working.
var txControlPrefixes = []string{
	"BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT", "RELEASE",
}

var writePrefixes = []string{
	"INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER",
}

// firstToken returns the first significant SQL token, upper-cased.
func firstToken(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	end := len(trimmed)
	for i, r := range trimmed {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ';' || r == '(' {
			end = i
			break
		}
	}
	return strings.ToUpper(trimmed[:end])
}

func classifySQL(sqlText string) stmtClass {
	token := firstToken(sqlText)
	for _, p := range txControlPrefixes {
		if token == p {
			return classTxControl
		}
	}
	for _, p := range writePrefixes {
		if token == p {
			return classWrite
		}
	}
	return classRead
}

func isExplain(sqlText string) bool {
	return firstToken(sqlText) == "EXPLAIN"
}

// execOutcome is the version-agnostic result of running one statement. The
// v1 handler and the v2/v3 pipeline shape it into their own wire forms.
type execOutcome struct {
	columns         []sqlexec.Column
	rows            [][]Value
	affectedRows    int64
	lastInsertRowID *int64
	rowsRead        int64
	rowsWritten     int64
	duration        time.Duration
}

// bindArgs converts wire arguments into native bindings. Named arguments are
// bound by name; a leading ':', '@' or '$' sigil in the client-supplied name
// is stripped so it matches the driver's expectations.
func bindArgs(positional []json.RawMessage, named []NamedArg) ([]interface{}, error) {
	if len(positional) > 0 {
		args := make([]interface{}, len(positional))
		for i, raw := range positional {
			v, err := DecodeValue(raw)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			args[i] = v.ToNative()
		}
		return args, nil
	}
	args := make([]interface{}, 0, len(named))
	for _, arg := range named {
		v, err := DecodeValue(arg.Value)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg.Name, err)
		}
		args = append(args, sql.Named(trimSigil(arg.Name), v.ToNative()))
	}
	return args, nil
}

// executeStmt runs one resolved SQL statement against the backend.
// Transaction-control statements are answered without touching the backend.
// Writes go through Exec so the driver's affected-row count and last insert
// rowid are real; everything else goes through Query.
func executeStmt(backend sqlexec.Executor, sqlText string, args []interface{}) (*execOutcome, error) {
	start := time.Now()
	out := &execOutcome{}

	switch classifySQL(sqlText) {
	case classTxControl:
		out.duration = time.Since(start)
		return out, nil

	case classWrite:
		res, err := backend.Exec(sqlText, args...)
		if err != nil {
			return nil, err
		}
		out.duration = time.Since(start)
		out.affectedRows = res.RowsAffected
		out.rowsWritten = 1
		if firstToken(sqlText) == "INSERT" {
			rowid := res.LastInsertID
			out.lastInsertRowID = &rowid
		}
		return out, nil
	}

	cursor, err := backend.Query(sqlText, args...)
	if err != nil {
		return nil, err
	}
	out.duration = time.Since(start)
	out.columns = cursor.Columns
	out.rows = make([][]Value, len(cursor.Rows))
	for i, nativeRow := range cursor.Rows {
		row := make([]Value, len(nativeRow))
		for j, nativeVal := range nativeRow {
			v, err := FromNative(nativeVal)
			if err != nil {
				return nil, err
			}
			row[j] = v
		}
		out.rows[i] = row
	}
	out.rowsRead = int64(len(out.rows))
	return out, nil
}

// toStmtResult shapes an outcome into the v2/v3 wire form. The counter
// fields are attached on v3 only.
func (o *execOutcome) toStmtResult(version Version) *StmtResult {
	res := &StmtResult{
		Cols:             make([]Col, len(o.columns)),
		Rows:             make([][]interface{}, len(o.rows)),
		AffectedRowCount: o.affectedRows,
	}
	for i, c := range o.columns {
		res.Cols[i] = Col{Name: c.Name, DeclType: c.DeclType}
	}
	for i, row := range o.rows {
		encoded := make([]interface{}, len(row))
		for j, v := range row {
			encoded[j] = v.EncodeV2()
		}
		res.Rows[i] = encoded
	}
	if o.lastInsertRowID != nil {
		s := strconv.FormatInt(*o.lastInsertRowID, 10)
		res.LastInsertRowID = &s
	}
	if version == V3 {
		rowsRead := o.rowsRead
		rowsWritten := o.rowsWritten
		durationMS := float64(o.duration.Microseconds()) / 1000.0
		res.RowsRead = &rowsRead
		res.RowsWritten = &rowsWritten
		res.QueryDurationMS = &durationMS
	}
	return res
}

// toV1Result shapes an outcome into the v1 wire form with raw scalar values.
func (o *execOutcome) toV1Result() V1ResultBody {
	columns := make([]string, len(o.columns))
	for i, c := range o.columns {
		columns[i] = c.Name
	}
	rows := make([][]interface{}, len(o.rows))
	for i, row := range o.rows {
		encoded := make([]interface{}, len(row))
		for j, v := range row {
			encoded[j] = v.EncodeV1()
		}
		rows[i] = encoded
	}
	return V1ResultBody{
		Columns:         columns,
		Rows:            rows,
		RowsRead:        o.rowsRead,
		RowsWritten:     o.rowsWritten,
		QueryDurationMS: float64(o.duration.Microseconds()) / 1000.0,
	}
}

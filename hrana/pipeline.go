package hrana

import (
	"fmt"

	"github.com/tomyedwab/libsqlhttp/hrana/streams"
	"github.com/tomyedwab/libsqlhttp/sqlexec"
)

// Engine evaluates one pipeline of stream requests against one checked-out
// stream. A failed request fills its result slot with an error and does not
// stop the requests after it.
type Engine struct {
	backend sqlexec.Executor
}

func NewEngine(backend sqlexec.Executor) *Engine {
	return &Engine{backend: backend}
}

// Run executes the requests in order and returns one result per request,
// preserving order. The returned flag reports whether the client asked for
// the stream to be closed; in that case the caller must not check the stream
// back in.
func (e *Engine) Run(stream *streams.Stream, requests []StreamRequest, version Version) ([]StreamResult, bool) {
	results := make([]StreamResult, len(requests))
	closeRequested := false

	for i, req := range requests {
		resp, err := e.dispatch(stream, &req, version)
		if err != nil {
			results[i] = StreamResult{Type: "error", Error: &Error{Message: err.Error()}}
			continue
		}
		if req.Type == "close" {
			closeRequested = true
		}
		results[i] = StreamResult{Type: "ok", Response: resp}
	}

	return results, closeRequested
}

func (e *Engine) dispatch(stream *streams.Stream, req *StreamRequest, version Version) (*StreamResponse, error) {
	switch req.Type {
	case "execute":
		return e.runExecute(stream, req, version)
	case "batch":
		return e.runBatch(stream, req, version)
	case "sequence":
		return e.runSequence(stream, req)
	case "describe":
		return e.runDescribe(stream, req)
	case "store_sql":
		return runStoreSQL(stream, req)
	case "close_sql":
		return runCloseSQL(stream, req)
	case "get_autocommit":
		// The backend never leaves autocommit; BEGIN and friends are
		// intercepted before they reach it.
		autocommit := true
		return &StreamResponse{Type: "get_autocommit", IsAutocommit: &autocommit}, nil
	case "close":
		return &StreamResponse{Type: "close"}, nil
	}
	return nil, fmt.Errorf("unknown request type %q", req.Type)
}

// resolveSQL yields the statement text for a Stmt, following a sql_id
// reference into the stream's cache when no inline SQL is given.
func resolveSQL(stream *streams.Stream, sqlText *string, sqlID *int32) (string, error) {
	if sqlText != nil && sqlID != nil {
		return "", fmt.Errorf("sql and sql_id are mutually exclusive")
	}
	if sqlText != nil {
		return *sqlText, nil
	}
	if sqlID != nil {
		cached, ok := stream.SQL(*sqlID)
		if !ok {
			return "", fmt.Errorf("no stored SQL with id %d", *sqlID)
		}
		return cached, nil
	}
	return "", fmt.Errorf("statement has neither sql nor sql_id")
}

func (e *Engine) executeOne(stream *streams.Stream, stmt *Stmt) (*execOutcome, error) {
	sqlText, err := resolveSQL(stream, stmt.SQL, stmt.SQLID)
	if err != nil {
		return nil, err
	}
	args, err := bindArgs(stmt.Args, stmt.NamedArgs)
	if err != nil {
		return nil, err
	}
	return executeStmt(e.backend, sqlText, args)
}

func (e *Engine) runExecute(stream *streams.Stream, req *StreamRequest, version Version) (*StreamResponse, error) {
	if req.Stmt == nil {
		return nil, fmt.Errorf("execute request is missing stmt")
	}
	outcome, err := e.executeOne(stream, req.Stmt)
	if err != nil {
		return nil, err
	}
	return &StreamResponse{Type: "execute", Result: outcome.toStmtResult(version)}, nil
}

func (e *Engine) runBatch(stream *streams.Stream, req *StreamRequest, version Version) (*StreamResponse, error) {
	if req.Batch == nil {
		return nil, fmt.Errorf("batch request is missing batch")
	}

	steps := req.Batch.Steps
	result := BatchResult{
		StepResults: make([]*StmtResult, len(steps)),
		StepErrors:  make([]*Error, len(steps)),
	}
	// executed[i] is set once step i ran; result/error slots stay nil for
	// skipped steps.
	executed := make([]bool, len(steps))

	for i, step := range steps {
		if !evalBatchCond(step.Condition, executed, result.StepErrors) {
			continue
		}
		executed[i] = true
		outcome, err := e.executeOne(stream, &step.Stmt)
		if err != nil {
			result.StepErrors[i] = &Error{Message: err.Error()}
			continue
		}
		result.StepResults[i] = outcome.toStmtResult(version)
	}

	return &StreamResponse{Type: "batch", Result: &result}, nil
}

// evalBatchCond evaluates a step condition against the steps already run.
// A nil condition is true. References to steps that were skipped or not yet
// run evaluate to false.
func evalBatchCond(cond *BatchCond, executed []bool, stepErrors []*Error) bool {
	if cond == nil {
		return true
	}
	switch cond.Type {
	case "ok":
		if cond.Step < 0 || cond.Step >= len(executed) {
			return false
		}
		return executed[cond.Step] && stepErrors[cond.Step] == nil
	case "error":
		if cond.Step < 0 || cond.Step >= len(executed) {
			return false
		}
		return executed[cond.Step] && stepErrors[cond.Step] != nil
	case "not":
		return !evalBatchCond(cond.Cond, executed, stepErrors)
	}
	return false
}

func (e *Engine) runSequence(stream *streams.Stream, req *StreamRequest) (*StreamResponse, error) {
	sqlText, err := resolveSQL(stream, req.SQL, req.SQLID)
	if err != nil {
		return nil, err
	}
	if err := e.backend.ExecScript(sqlText); err != nil {
		return nil, err
	}
	return &StreamResponse{Type: "sequence"}, nil
}

func (e *Engine) runDescribe(stream *streams.Stream, req *StreamRequest) (*StreamResponse, error) {
	sqlText, err := resolveSQL(stream, req.SQL, req.SQLID)
	if err != nil {
		return nil, err
	}
	result := DescribeResult{
		Params:     []interface{}{},
		Cols:       []Col{},
		IsExplain:  isExplain(sqlText),
		IsReadonly: classifySQL(sqlText) != classWrite,
	}
	return &StreamResponse{Type: "describe", Result: &result}, nil
}

func runStoreSQL(stream *streams.Stream, req *StreamRequest) (*StreamResponse, error) {
	if req.SQLID == nil {
		return nil, fmt.Errorf("store_sql request is missing sql_id")
	}
	if req.SQL == nil {
		return nil, fmt.Errorf("store_sql request is missing sql")
	}
	stream.StoreSQL(*req.SQLID, *req.SQL)
	return &StreamResponse{Type: "store_sql"}, nil
}

func runCloseSQL(stream *streams.Stream, req *StreamRequest) (*StreamResponse, error) {
	if req.SQLID == nil {
		return nil, fmt.Errorf("close_sql request is missing sql_id")
	}
	stream.CloseSQL(*req.SQLID)
	return &StreamResponse{Type: "close_sql"}, nil
}

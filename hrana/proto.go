// Package hrana implements the libSQL HTTP protocols: the v1 simple batch
// endpoint and the v2/v3 Hrana-over-HTTP pipeline, encoded as JSON.
//
// The package is authentication-agnostic; an upstream layer may reject
// requests before they reach the router here.
package hrana

import (
	"encoding/json"
	"fmt"
)

// Version selects the wire encoding for a request.
type Version int

const (
	V1 Version = 1
	V2 Version = 2
	V3 Version = 3
)

// Stmt is one statement in a pipeline or batch. Exactly one of SQL and SQLID
// must be set; SQLID references a fragment previously stored on the stream.
type Stmt struct {
	SQL       *string           `json:"sql,omitempty"`
	SQLID     *int32            `json:"sql_id,omitempty"`
	Args      []json.RawMessage `json:"args,omitempty"`
	NamedArgs []NamedArg        `json:"named_args,omitempty"`
	WantRows  *bool             `json:"want_rows,omitempty"`
}

// NamedArg is a single named parameter binding.
type NamedArg struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// namedArgList accepts both the v3 list-of-pairs shape and the v2 map shape.
type namedArgList []NamedArg

func (n *namedArgList) UnmarshalJSON(data []byte) error {
	var pairs []NamedArg
	if err := json.Unmarshal(data, &pairs); err == nil {
		*n = pairs
		return nil
	}
	var byName map[string]json.RawMessage
	if err := json.Unmarshal(data, &byName); err != nil {
		return fmt.Errorf("named_args must be a list of {name, value} pairs or a map")
	}
	pairs = make([]NamedArg, 0, len(byName))
	for name, value := range byName {
		pairs = append(pairs, NamedArg{Name: name, Value: value})
	}
	*n = pairs
	return nil
}

func (s *Stmt) UnmarshalJSON(data []byte) error {
	type wireStmt struct {
		SQL       *string           `json:"sql"`
		SQLID     *int32            `json:"sql_id"`
		Args      []json.RawMessage `json:"args"`
		NamedArgs namedArgList      `json:"named_args"`
		WantRows  *bool             `json:"want_rows"`
	}
	var w wireStmt
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.SQL = w.SQL
	s.SQLID = w.SQLID
	s.Args = w.Args
	s.NamedArgs = w.NamedArgs
	s.WantRows = w.WantRows
	return nil
}

// Col describes one column of a statement result.
type Col struct {
	Name     string  `json:"name"`
	DeclType *string `json:"decltype"`
}

// StmtResult is the v2/v3 wire shape of one executed statement. Rows hold
// already-encoded wire values. The three counter fields are present on v3
// only.
type StmtResult struct {
	Cols             []Col           `json:"cols"`
	Rows             [][]interface{} `json:"rows"`
	AffectedRowCount int64           `json:"affected_row_count"`
	LastInsertRowID  *string         `json:"last_insert_rowid"`
	RowsRead         *int64          `json:"rows_read,omitempty"`
	RowsWritten      *int64          `json:"rows_written,omitempty"`
	QueryDurationMS  *float64        `json:"query_duration_ms,omitempty"`
}

// Batch is an ordered list of conditional steps.
type Batch struct {
	Steps []BatchStep `json:"steps"`
}

type BatchStep struct {
	Condition *BatchCond `json:"condition,omitempty"`
	Stmt      Stmt       `json:"stmt"`
}

// BatchCond guards a batch step. Type is one of "ok", "error" or "not".
type BatchCond struct {
	Type string     `json:"type"`
	Step int        `json:"step,omitempty"`
	Cond *BatchCond `json:"cond,omitempty"`
}

// BatchResult carries parallel arrays with one slot per step; skipped steps
// have null in both.
type BatchResult struct {
	StepResults []*StmtResult `json:"step_results"`
	StepErrors  []*Error      `json:"step_errors"`
}

// DescribeResult is the response to a describe request. Params and Cols stay
// empty; only the two classification flags are computed.
type DescribeResult struct {
	Params     []interface{} `json:"params"`
	Cols       []Col         `json:"cols"`
	IsExplain  bool          `json:"is_explain"`
	IsReadonly bool          `json:"is_readonly"`
}

// Error is the wire shape of a failure message.
type Error struct {
	Message string `json:"message"`
}

// StreamRequest is one entry in a pipeline's request list.
type StreamRequest struct {
	Type  string  `json:"type"`
	Stmt  *Stmt   `json:"stmt,omitempty"`
	Batch *Batch  `json:"batch,omitempty"`
	SQL   *string `json:"sql,omitempty"`
	SQLID *int32  `json:"sql_id,omitempty"`
}

// StreamResponse is the success payload for one stream request.
type StreamResponse struct {
	Type         string      `json:"type"`
	Result       interface{} `json:"result,omitempty"`
	IsAutocommit *bool       `json:"is_autocommit,omitempty"`
}

// StreamResult tags each pipeline slot as ok or error.
type StreamResult struct {
	Type     string          `json:"type"`
	Response *StreamResponse `json:"response,omitempty"`
	Error    *Error          `json:"error,omitempty"`
}

// PipelineRequest is the body of POST /v2/pipeline and /v3/pipeline.
type PipelineRequest struct {
	Baton    *string         `json:"baton"`
	Requests []StreamRequest `json:"requests"`
}

// PipelineResponse mirrors the request order in Results. BaseURL is always
// null; there is no sticky routing.
type PipelineResponse struct {
	Baton   *string        `json:"baton"`
	BaseURL *string        `json:"base_url"`
	Results []StreamResult `json:"results"`
}

// V1Request is the body of the v1 batch endpoint. Each statement is either a
// bare SQL string or a {q, params} object.
type V1Request struct {
	Statements []V1Statement `json:"statements"`
}

type V1Statement struct {
	Query  string
	Params []json.RawMessage
	Named  map[string]json.RawMessage
}

func (s *V1Statement) UnmarshalJSON(data []byte) error {
	var q string
	if err := json.Unmarshal(data, &q); err == nil {
		s.Query = q
		return nil
	}
	var obj struct {
		Q      string          `json:"q"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("statement must be a string or a {q, params} object")
	}
	if obj.Q == "" {
		return fmt.Errorf("statement is missing q")
	}
	s.Query = obj.Q
	if len(obj.Params) == 0 {
		return nil
	}
	var positional []json.RawMessage
	if err := json.Unmarshal(obj.Params, &positional); err == nil {
		s.Params = positional
		return nil
	}
	var named map[string]json.RawMessage
	if err := json.Unmarshal(obj.Params, &named); err != nil {
		return fmt.Errorf("params must be an array or an object")
	}
	s.Named = named
	return nil
}

// V1Result is one entry of the v1 response array.
type V1Result struct {
	Results V1ResultBody `json:"results"`
}

type V1ResultBody struct {
	Columns         []string        `json:"columns"`
	Rows            [][]interface{} `json:"rows"`
	RowsRead        int64           `json:"rows_read"`
	RowsWritten     int64           `json:"rows_written"`
	QueryDurationMS float64         `json:"query_duration_ms"`
}

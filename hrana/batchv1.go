package hrana

import (
	"database/sql"
	"fmt"

	"github.com/tomyedwab/libsqlhttp/sqlexec"
)

// runV1Batch executes a v1 statement list in order. The first failure aborts
// the batch: the caller gets the error and none of the earlier results.
// There is no stream and no cross-request protocol state.
func runV1Batch(backend sqlexec.Executor, statements []V1Statement) ([]V1Result, error) {
	results := make([]V1Result, 0, len(statements))
	for i, stmt := range statements {
		args, err := bindV1Params(stmt)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		outcome, err := executeStmt(backend, stmt.Query, args)
		if err != nil {
			return nil, err
		}
		results = append(results, V1Result{Results: outcome.toV1Result()})
	}
	return results, nil
}

func bindV1Params(stmt V1Statement) ([]interface{}, error) {
	if len(stmt.Params) > 0 {
		args := make([]interface{}, len(stmt.Params))
		for i, raw := range stmt.Params {
			v, err := DecodeValue(raw)
			if err != nil {
				return nil, fmt.Errorf("param %d: %w", i, err)
			}
			args[i] = v.ToNative()
		}
		return args, nil
	}
	args := make([]interface{}, 0, len(stmt.Named))
	for name, raw := range stmt.Named {
		v, err := DecodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", name, err)
		}
		args = append(args, sql.Named(trimSigil(name), v.ToNative()))
	}
	return args, nil
}

func trimSigil(name string) string {
	if len(name) > 0 && (name[0] == ':' || name[0] == '@' || name[0] == '$') {
		return name[1:]
	}
	return name
}

package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-payments-api/internal/normalize"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// QueryObserver receives upstream query timings.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// RPCParam is a named argument of a database function.
type RPCParam struct {
	Name  string
	Value interface{}
}

// Param builds an RPCParam.
func Param(name string, value interface{}) RPCParam {
	return RPCParam{Name: name, Value: value}
}

// RPCError reports a failed remote procedure call.
type RPCError struct {
	Function string
	Err      error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s: %v", e.Function, e.Err)
}

func (e *RPCError) Unwrap() error { return e.Err }

// RPCClient invokes set-returning Postgres functions with named arguments and
// returns each row as a loosely-typed record.
type RPCClient struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewRPCClient constructs an RPCClient. observer may be nil.
func NewRPCClient(db *sqlx.DB, observer QueryObserver) *RPCClient {
	return &RPCClient{db: db, observer: observer}
}

// BuildRPCQuery renders the SQL for calling function with the given parameter names.
func BuildRPCQuery(function string, params []RPCParam) (string, []interface{}, error) {
	if !identifierPattern.MatchString(function) {
		return "", nil, fmt.Errorf("invalid rpc function name %q", function)
	}
	named := make([]string, 0, len(params))
	args := make([]interface{}, 0, len(params))
	for i, p := range params {
		if !identifierPattern.MatchString(p.Name) {
			return "", nil, fmt.Errorf("invalid rpc parameter name %q", p.Name)
		}
		named = append(named, fmt.Sprintf("%s => $%d", p.Name, i+1))
		args = append(args, p.Value)
	}
	query := fmt.Sprintf("SELECT to_jsonb(r) FROM %s(%s) AS r", function, strings.Join(named, ", "))
	return query, args, nil
}

// Call executes function and decodes every returned row.
func (c *RPCClient) Call(ctx context.Context, function string, params ...RPCParam) ([]normalize.Record, error) {
	query, args, err := BuildRPCQuery(function, params)
	if err != nil {
		return nil, &RPCError{Function: function, Err: err}
	}

	start := time.Now()
	rows, err := c.db.QueryxContext(ctx, query, args...)
	if c.observer != nil {
		defer func() { c.observer.ObserveDBQuery("rpc:"+function, time.Since(start)) }()
	}
	if err != nil {
		return nil, &RPCError{Function: function, Err: err}
	}
	defer rows.Close()

	records := make([]normalize.Record, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, &RPCError{Function: function, Err: fmt.Errorf("scan row: %w", err)}
		}
		record, err := decodeRecord(raw)
		if err != nil {
			return nil, &RPCError{Function: function, Err: err}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &RPCError{Function: function, Err: err}
	}
	return records, nil
}

func decodeRecord(raw []byte) (normalize.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var record normalize.Record
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return record, nil
}

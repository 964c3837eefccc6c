package sqlite

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rphilander/sigil"
)

// Store owns the database handles behind the sql- builtins.
type Store struct {
	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// Register installs the sql- builtins into scope and returns the store
// backing them.
func Register(scope *sigil.Scope) *Store {
	st := &Store{dbs: make(map[string]*sql.DB)}
	for name, fn := range map[string]sigil.Builtin{
		"sql-open":       st.builtinOpen,
		"sql-close":      st.builtinClose,
		"sql-query":      st.builtinQuery,
		"sql-exec":       st.builtinExec,
		"sql-exec-multi": st.builtinExecMulti,
		"sql-list":       st.builtinList,
	} {
		scope.Define(name, sigil.NewBuiltin(name, fn))
	}
	return st
}

// Close closes every open database.
func (st *Store) Close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for name, db := range st.dbs {
		db.Close()
		delete(st.dbs, name)
	}
}

func (st *Store) getDB(op, name string) (*sql.DB, error) {
	st.mu.Lock()
	db, ok := st.dbs[name]
	st.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s: database %q not open", op, name)
	}
	return db, nil
}

func stringArg(op string, args []any, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%s: arg %d must be a string", op, i+1)
	}
	return s, nil
}

// builtinOpen: (sql-open "path.db") opens or creates a database file.
func (st *Store) builtinOpen(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("sql-open: expected 1 arg, got %d", len(args))
	}
	path, err := stringArg("sql-open", args, 0)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.dbs[path]; exists {
		return nil, fmt.Errorf("sql-open: database %q already open", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sql-open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sql-open: %w", err)
	}

	st.dbs[path] = db
	return path, nil
}

func (st *Store) builtinClose(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("sql-close: expected 1 arg, got %d", len(args))
	}
	name, err := stringArg("sql-close", args, 0)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	db, exists := st.dbs[name]
	if exists {
		delete(st.dbs, name)
	}
	st.mu.Unlock()

	if !exists {
		return nil, fmt.Errorf("sql-close: database %q not open", name)
	}
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("sql-close: %w", err)
	}
	return name, nil
}

// builtinQuery: (sql-query "path.db" "SELECT ..." params...) returns a
// list of column→value maps.
func (st *Store) builtinQuery(args []any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("sql-query: expected database, sql and optional params, got %d args", len(args))
	}
	name, err := stringArg("sql-query", args, 0)
	if err != nil {
		return nil, err
	}
	query, err := stringArg("sql-query", args, 1)
	if err != nil {
		return nil, err
	}
	db, err := st.getDB("sql-query", name)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(query, args[2:]...)
	if err != nil {
		return nil, fmt.Errorf("sql-query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sql-query: %w", err)
	}

	results := make([]any, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sql-query: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = columnValue(vals[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sql-query: %w", err)
	}
	return results, nil
}

// columnValue maps driver values onto host values.
func columnValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return v
	}
}

// builtinExec: (sql-exec "path.db" "INSERT ..." params...) returns a map
// with rows_affected and last_insert_id.
func (st *Store) builtinExec(args []any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("sql-exec: expected database, sql and optional params, got %d args", len(args))
	}
	name, err := stringArg("sql-exec", args, 0)
	if err != nil {
		return nil, err
	}
	stmt, err := stringArg("sql-exec", args, 1)
	if err != nil {
		return nil, err
	}
	db, err := st.getDB("sql-exec", name)
	if err != nil {
		return nil, err
	}

	result, err := db.Exec(stmt, args[2:]...)
	if err != nil {
		return nil, fmt.Errorf("sql-exec: %w", err)
	}
	return execResult(result), nil
}

func execResult(result sql.Result) map[string]any {
	ra, _ := result.RowsAffected()
	li, _ := result.LastInsertId()
	return map[string]any{
		"rows_affected":  ra,
		"last_insert_id": li,
	}
}

// builtinExecMulti: (sql-exec-multi "path.db" (list (list "INSERT ..." p1)
// (list "UPDATE ..."))) runs the statements in one transaction.
func (st *Store) builtinExecMulti(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("sql-exec-multi: expected database and statement list, got %d args", len(args))
	}
	name, err := stringArg("sql-exec-multi", args, 0)
	if err != nil {
		return nil, err
	}
	stmts, ok := args[1].([]any)
	if !ok {
		return nil, fmt.Errorf("sql-exec-multi: second arg must be a list of statements")
	}
	if len(stmts) == 0 {
		return nil, fmt.Errorf("sql-exec-multi: statement list is empty")
	}
	db, err := st.getDB("sql-exec-multi", name)
	if err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("sql-exec-multi: %w", err)
	}

	results := make([]any, 0, len(stmts))
	for i, raw := range stmts {
		parts, ok := raw.([]any)
		if !ok || len(parts) == 0 {
			tx.Rollback()
			return nil, fmt.Errorf("sql-exec-multi: stmt %d must be a list with the sql first", i)
		}
		stmt, ok := parts[0].(string)
		if !ok {
			tx.Rollback()
			return nil, fmt.Errorf("sql-exec-multi: stmt %d: sql must be a string", i)
		}
		result, err := tx.Exec(stmt, parts[1:]...)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("sql-exec-multi: stmt %d: %w", i, err)
		}
		results = append(results, execResult(result))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sql-exec-multi: %w", err)
	}
	return results, nil
}

func (st *Store) builtinList(args []any) (any, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("sql-list: expected 0 args, got %d", len(args))
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	names := make([]string, 0, len(st.dbs))
	for name := range st.dbs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out, nil
}

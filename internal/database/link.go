package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// FetchMode selects the row representation a query returns. The numbering is
// part of the wire protocol.
type FetchMode int

const (
	FetchAssoc   FetchMode = 1
	FetchIndexed FetchMode = 2
	// FetchObject has no distinct representation here; rows come back as
	// generic maps just like FetchAssoc.
	FetchObject FetchMode = 3
)

const (
	maxRetriesToConnect  = 5
	sleepBetweenAttempts = 2 * time.Second
)

// ErrConnect is fatal for the current bridge request.
var ErrConnect = errors.New("can not connect to DB")

// Options carries per-query extras.
type Options struct {
	// FetchFields requests column metadata alongside rows.
	FetchFields bool
	// SetNames switches the session character set before running the query.
	SetNames string
}

// Field describes one result column.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Result is the outcome of a single query. Rows holds []map[string]any,
// [][]any or a bool for statements without a result set. Err carries the SQL
// error message; it does not invalidate the connection.
type Result struct {
	Rows   any     `json:"res"`
	Fields []Field `json:"fetchedFields,omitempty"`
	Err    string  `json:"-"`
}

// OpenFunc produces a fresh database handle.
type OpenFunc func() (*sql.DB, error)

// DefaultOpener opens a dedicated single-connection handle.
func DefaultOpener(driver, dsn string) OpenFunc {
	return func() (*sql.DB, error) {
		h, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, err
		}
		h.SetMaxOpenConns(1)
		if err := h.Ping(); err != nil {
			h.Close()
			return nil, err
		}
		return h, nil
	}
}

// Link owns exactly one lazily-established connection for the duration of a
// bridge request. Connection failures are retried with a bounded constant
// backoff; query errors are reported per statement and leave the connection
// open.
type Link struct {
	open    OpenFunc
	handle  *sql.DB
	retries uint64
	wait    time.Duration

	insertedID   int64
	affectedRows int64
}

func NewLink(open OpenFunc) *Link {
	return &Link{
		open:    open,
		retries: maxRetriesToConnect,
		wait:    sleepBetweenAttempts,
	}
}

// connect is idempotent: an established handle is reused.
func (l *Link) connect() (*sql.DB, error) {
	if l.handle != nil {
		return l.handle, nil
	}

	op := func() error {
		h, err := l.open()
		if err != nil {
			return err
		}
		l.handle = h
		return nil
	}

	// retries-1 retries after the initial attempt = exactly `retries` tries
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(l.wait), l.retries-1)
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	return l.handle, nil
}

// Query executes sql with the requested fetch mode.
func (l *Link) Query(query string, mode FetchMode, opts Options) (*Result, error) {
	h, err := l.connect()
	if err != nil {
		return nil, err
	}

	if opts.SetNames != "" {
		if _, err := h.Exec("SET NAMES " + quoteIdent(opts.SetNames)); err != nil {
			return &Result{Err: l.errorMsg(err)}, nil
		}
	}

	if !returnsRows(query) {
		res, err := h.Exec(query)
		if err != nil {
			return &Result{Err: l.errorMsg(err)}, nil
		}
		if id, err := res.LastInsertId(); err == nil {
			l.insertedID = id
		}
		if n, err := res.RowsAffected(); err == nil {
			l.affectedRows = n
		}
		return &Result{Rows: true}, nil
	}

	rows, err := h.Query(query)
	if err != nil {
		return &Result{Err: l.errorMsg(err)}, nil
	}
	defer rows.Close()

	result := &Result{}

	cols, err := rows.Columns()
	if err != nil {
		return &Result{Err: l.errorMsg(err)}, nil
	}

	if opts.FetchFields {
		types, err := rows.ColumnTypes()
		if err != nil {
			return &Result{Err: l.errorMsg(err)}, nil
		}
		for _, ct := range types {
			result.Fields = append(result.Fields, Field{
				Name: ct.Name(),
				Type: ct.DatabaseTypeName(),
			})
		}
	}

	var count int64
	switch mode {
	case FetchIndexed:
		var out [][]any
		for rows.Next() {
			vals, err := scanRow(rows, len(cols))
			if err != nil {
				return &Result{Err: l.errorMsg(err)}, nil
			}
			out = append(out, vals)
			count++
		}
		result.Rows = out
	default: // FetchAssoc, FetchObject
		var out []map[string]any
		for rows.Next() {
			vals, err := scanRow(rows, len(cols))
			if err != nil {
				return &Result{Err: l.errorMsg(err)}, nil
			}
			m := make(map[string]any, len(cols))
			for i, c := range cols {
				m[c] = vals[i]
			}
			out = append(out, m)
			count++
		}
		result.Rows = out
	}

	if err := rows.Err(); err != nil {
		return &Result{Err: l.errorMsg(err)}, nil
	}

	l.insertedID = 0
	l.affectedRows = count

	return result, nil
}

// LocalQuery runs trusted internal SQL and returns associative rows.
func (l *Link) LocalQuery(query string) ([]map[string]any, error) {
	res, err := l.Query(query, FetchAssoc, Options{})
	if err != nil {
		return nil, err
	}
	if res.Err != "" {
		return nil, errors.New(res.Err)
	}
	rows, _ := res.Rows.([]map[string]any)
	return rows, nil
}

// LocalExec runs trusted internal SQL without a result set.
func (l *Link) LocalExec(query string, args ...any) error {
	h, err := l.connect()
	if err != nil {
		return err
	}
	if _, err := h.Exec(query, args...); err != nil {
		return errors.New(l.errorMsg(err))
	}
	return nil
}

func (l *Link) LastInsertID() int64 {
	return l.insertedID
}

func (l *Link) AffectedRows() int64 {
	return l.affectedRows
}

// Release closes the underlying handle. The link must not be reused.
func (l *Link) Release() {
	if l.handle != nil {
		l.handle.Close()
		l.handle = nil
	}
}

func (l *Link) errorMsg(err error) string {
	return fmt.Sprintf("[Link] MySQL Query Error: %s", err)
}

func scanRow(rows *sql.Rows, n int) ([]any, error) {
	raw := make([]any, n)
	ptrs := make([]any, n)
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range raw {
		if b, ok := v.([]byte); ok {
			raw[i] = string(b)
		}
	}
	return raw, nil
}

func returnsRows(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, kw := range []string{"SELECT", "SHOW", "DESCRIBE", "DESC ", "EXPLAIN", "PRAGMA", "WITH"} {
		if strings.HasPrefix(q, kw) {
			return true
		}
	}
	return false
}

// quoteIdent strips everything but charset-name characters.
func quoteIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

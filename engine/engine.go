package engine

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// BusyTimeoutMillis bounds how long a connection waits on a locked database.
const BusyTimeoutMillis = 5000

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./db.sqlite". For in-memory
// databases, pass ":memory:".
func Open(dsn string) (*sql.DB, error) { return sql.Open("sqlite", dsn) }

// OpenFile opens a file-backed database with a busy timeout applied to every
// pooled connection. The path is percent-escaped into a file: URI, so names
// holding '?', '#' or '%' open the file they name. The pool is capped at a single connection: the memory
// log has one writer and per-operation handles.
func OpenFile(path string) (*sql.DB, error) {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", BusyTimeoutMillis))
	dsn := url.URL{Scheme: "file", Path: path, OmitHost: true, RawQuery: q.Encode()}
	db, err := Open(dsn.String())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

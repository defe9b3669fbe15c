//go:build plainsqlite

package store

import (
	"database/sql/driver"

	"github.com/mattn/go-sqlite3"
)

// Built with -tags plainsqlite the journal uses mattn/go-sqlite3. Linked
// against its bundled SQLite it cannot open encrypted journals; add
// -tags libsqlite3 and link libsqlcipher to get them back.
type sqliteConn = sqlite3.SQLiteConn

func newDriver(hook func(*sqliteConn) error) driver.Driver {
	return &sqlite3.SQLiteDriver{ConnectHook: hook}
}

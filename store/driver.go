//go:build !plainsqlite

package store

import (
	"database/sql/driver"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

// The default build links the bundled SQLCipher amalgamation, so encrypted
// journals work without a system library.
type sqliteConn = sqlite3.SQLiteConn

func newDriver(hook func(*sqliteConn) error) driver.Driver {
	return &sqlite3.SQLiteDriver{ConnectHook: hook}
}

package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/ftjournal/errs"
)

// SQLCipher settings. They are fixed so files stay readable by every
// build of the journal that shares this configuration.
const (
	CipherPageSize = 4096
	KDFIterations  = 64000
	HMACAlgorithm  = "HMAC_SHA512"
	KDFAlgorithm   = "PBKDF2_HMAC_SHA512"
)

// busy_timeout is safe to set from the DSN: it never touches the file.
const dsnParams = "?_busy_timeout=5000"

type keyConfig struct {
	encrypted  bool
	passphrase string
}

type pragma struct {
	name string
	sql  string
}

// connectPragmas lists the statements run on every new physical connection.
// The key and cipher settings must precede any read of the file.
func connectPragmas(kc keyConfig) []pragma {
	var ps []pragma
	if kc.encrypted {
		ps = append(ps,
			pragma{"key", "PRAGMA key = " + quoteLiteral(kc.passphrase)},
			pragma{"cipher_page_size", fmt.Sprintf("PRAGMA cipher_page_size = %d", CipherPageSize)},
			pragma{"kdf_iter", fmt.Sprintf("PRAGMA kdf_iter = %d", KDFIterations)},
			pragma{"cipher_hmac_algorithm", "PRAGMA cipher_hmac_algorithm = " + HMACAlgorithm},
			pragma{"cipher_kdf_algorithm", "PRAGMA cipher_kdf_algorithm = " + KDFAlgorithm},
		)
	}
	return append(ps,
		pragma{"foreign_keys", "PRAGMA foreign_keys = ON"},
		pragma{"synchronous", "PRAGMA synchronous = NORMAL"},
	)
}

func connectHook(kc keyConfig) func(*sqliteConn) error {
	ps := connectPragmas(kc)
	return func(c *sqliteConn) error {
		for _, p := range ps {
			// The statement text may hold the passphrase; report the name only.
			if _, err := c.Exec(p.sql, nil); err != nil {
				return fmt.Errorf("pragma %s: %w", p.name, err)
			}
		}
		return nil
	}
}

// connector hands database/sql a driver whose hook keys each connection,
// so a reconnect inside the pool never runs unkeyed.
type connector struct {
	dsn string
	drv driver.Driver
}

func (c connector) Connect(context.Context) (driver.Conn, error) { return c.drv.Open(c.dsn) }

func (c connector) Driver() driver.Driver { return c.drv }

// openDB opens path, applies pragmas and forces a read so a wrong key
// fails here instead of on the first query.
func openDB(ctx context.Context, path string, kc keyConfig) (*sql.DB, error) {
	if kc.encrypted && kc.passphrase == "" {
		return nil, fmt.Errorf("%w: passphrase required for encrypted database", errs.ErrCrypto)
	}

	db := sql.OpenDB(connector{
		dsn: path + dsnParams,
		drv: newDriver(connectHook(kc)),
	})
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if kc.encrypted {
		ok, err := hasCipher(ctx, db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: open %s: %v", errs.ErrCrypto, path, err)
		}
		if !ok {
			db.Close()
			return nil, fmt.Errorf("%w: sqlite library has no SQLCipher support", errs.ErrCrypto)
		}
	}

	var n int64
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master`).Scan(&n); err != nil {
		db.Close()
		if kc.encrypted {
			return nil, fmt.Errorf("%w: wrong passphrase or corrupt file %s: %v", errs.ErrCrypto, path, err)
		}
		return nil, fmt.Errorf("%w: probe %s: %w", errs.ErrIO, path, err)
	}

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: journal_mode: %w", errs.ErrIO, err)
	}
	return db, nil
}

// hasCipher reports whether the linked library is SQLCipher. Plain SQLite
// ignores PRAGMA key and would write an unencrypted file.
func hasCipher(ctx context.Context, db *sql.DB) (bool, error) {
	var v string
	err := db.QueryRowContext(ctx, `PRAGMA cipher_version`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v != "", nil
}

// CipherSupported reports whether encrypted databases can be opened by
// this binary. It is false only for -tags plainsqlite builds that are not
// linked against libsqlcipher.
func CipherSupported() bool {
	db := sql.OpenDB(connector{dsn: ":memory:", drv: newDriver(nil)})
	defer db.Close()

	ok, err := hasCipher(context.Background(), db)
	return err == nil && ok
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Package errs holds the error taxonomy shared by every ftjournal package.
// Packages wrap these sentinels with context; callers test with errors.Is.
package errs

import "errors"

var (
	// ErrConfiguration means the app was never initialized or its config
	// file cannot be read.
	ErrConfiguration = errors.New("app not initialized")
	// ErrLocked means an operation needed the database but no connection is open.
	ErrLocked = errors.New("database is locked")
	// ErrAlreadyExists guards create paths against silent overwrites.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation means the input violates a business rule.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is a trade or rule lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrIO covers filesystem create/copy/read/write failures.
	ErrIO = errors.New("io error")
	// ErrCrypto means a wrong passphrase, a corrupt encrypted file, or a
	// SQLite build without SQLCipher.
	ErrCrypto = errors.New("decryption failed")
	// ErrTimezone is an unknown zone name or a local time that does not
	// map to exactly one instant.
	ErrTimezone = errors.New("timezone error")
)

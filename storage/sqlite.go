package storage

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var sqliteDialect = dialect{name: "sqlite"}

func isSQLiteUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

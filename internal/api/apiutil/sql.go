package apiutil

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

func ToNullInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func sqliteExtendedCode(err error) (sqlite3.ErrNoExtended, bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return 0, false
	}
	return sqliteErr.ExtendedCode, true
}

func IsSQLiteUniqueViolation(err error) bool {
	code, ok := sqliteExtendedCode(err)
	return ok && (code == sqlite3.ErrConstraintUnique || code == sqlite3.ErrConstraintPrimaryKey)
}

func IsSQLiteForeignKeyViolation(err error) bool {
	code, ok := sqliteExtendedCode(err)
	return ok && code == sqlite3.ErrConstraintForeignKey
}

func IsSQLiteCheckViolation(err error) bool {
	code, ok := sqliteExtendedCode(err)
	return ok && code == sqlite3.ErrConstraintCheck
}

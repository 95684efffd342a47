package repository

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// orDB resolves the executor for a statement: the caller's transaction when
// one is in flight, the pool otherwise.
func orDB(ext sqlx.ExtContext, db *sqlx.DB) sqlx.ExtContext {
	if ext == nil {
		return db
	}
	return ext
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

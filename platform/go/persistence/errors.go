package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var (
	// ErrUserNotFound indicates a missing user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserConflict indicates a duplicated email.
	ErrUserConflict = errors.New("user conflict")
	// ErrBotecoNotFound indicates a missing boteco record.
	ErrBotecoNotFound = errors.New("boteco not found")
	// ErrBotecoConflict indicates the public username is already taken.
	ErrBotecoConflict = errors.New("boteco conflict")
	// ErrMembershipConflict indicates the user is already linked to the boteco.
	ErrMembershipConflict = errors.New("membership conflict")
	// ErrReferenceMissing indicates a foreign key pointed at a row that does not exist.
	ErrReferenceMissing = errors.New("referenced record missing")
)

func isUniqueViolation(err error) bool {
	return hasCode(err, pgUniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return hasCode(err, pgForeignKeyViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

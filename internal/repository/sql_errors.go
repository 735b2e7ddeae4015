package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"accountsvc/internal/domain"
)

const (
	pqUniqueViolation = "23505"

	emailConstraint    = "accounts_email_key"
	usernameConstraint = "accounts_username_key"
)

// uniqueViolation translates a storage constraint error into the matching
// duplicate sentinel. It returns nil for any other error. Only the constraint
// or column name is inspected; driver messages also carry the rejected value.
func uniqueViolation(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		// "UNIQUE constraint failed: accounts.email"
		msg := sqliteErr.Error()
		switch {
		case strings.HasSuffix(msg, "accounts.email"):
			return domain.ErrDuplicateEmail
		case strings.HasSuffix(msg, "accounts.username"):
			return domain.ErrDuplicateUsername
		}
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		switch pqErr.Constraint {
		case emailConstraint:
			return domain.ErrDuplicateEmail
		case usernameConstraint:
			return domain.ErrDuplicateUsername
		}
	}

	return nil
}

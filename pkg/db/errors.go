package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
)

const (
	uniqueViolationCode      = "23505"
	checkViolationCode       = "23514"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

// IsUniqueViolation reports whether err is a unique constraint violation on
// Postgres or SQLite. A non-empty constraintName must also match.
func IsUniqueViolation(err error, constraintName string) bool {
	return isConstraintViolation(err, uniqueViolationCode, constraintName, "duplicate key value", "UNIQUE constraint failed")
}

// IsCheckViolation reports whether err is a CHECK constraint violation, such
// as a wallet balance dropping below zero.
func IsCheckViolation(err error, constraintName string) bool {
	return isConstraintViolation(err, checkViolationCode, constraintName, "violates check constraint", "CHECK constraint failed")
}

func isConstraintViolation(err error, sqlState, constraintName string, markers ...string) bool {
	if err == nil {
		return false
	}

	if pg, ok := pkgerrors.Postgres(err); ok {
		if pg.Code != sqlState {
			return false
		}
		return constraintName == "" || pg.Constraint == constraintName
	}

	msg := err.Error()
	matched := false
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// IsSerializationFailure reports whether Postgres aborted the transaction
// because a concurrent one won, which makes a full replay safe.
func IsSerializationFailure(err error) bool {
	pg, ok := pkgerrors.Postgres(err)
	return ok && (pg.Code == serializationFailureCode || pg.Code == deadlockDetectedCode)
}

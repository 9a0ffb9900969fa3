package db

import (
	"errors"
	"strings"
)

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint, walking the wrap chain. When constraintName is
// provided, the helper looks for the constraint text instead.
func IsUniqueViolation(err error, constraintName string) bool {
	needles := []string{"duplicate key value", "UNIQUE constraint failed"}
	if constraintName != "" {
		needles = []string{constraintName}
	}
	for err != nil {
		for _, needle := range needles {
			if strings.Contains(err.Error(), needle) {
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

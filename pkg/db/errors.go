package db

import "strings"

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// transientFragments are driver message substrings that indicate a save may
// succeed if retried. The concrete driver is abstracted behind GORM, so
// classification is text-based.
var transientFragments = []string{
	"deadlock detected",
	"could not serialize access",
	"connection reset",
	"connection refused",
	"broken pipe",
	"i/o timeout",
	"timeout expired",
	"too many connections",
	"the database system is starting up",
}

// IsTransient reports whether the error looks like a temporary persistence
// failure (deadlock, serialization conflict, dropped connection, timeout).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range transientFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

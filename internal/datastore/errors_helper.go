// errors_helper.go: error construction helpers for database operations
package datastore

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/peepybureau/bpi/internal/errors"
)

// dbError creates a categorized database error with context pairs.
func dbError(err error, operation string, collection Collection, context ...any) error {
	priority := errors.PriorityMedium
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "no space") ||
		strings.Contains(msg, "corrupt") ||
		strings.Contains(msg, "malformed") {
		priority = errors.PriorityCritical
	}

	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Priority(priority).
		Context("operation", operation).
		Context("collection", string(collection))

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notFoundError creates a not-found error for a record.
func notFoundError(collection Collection, id string) error {
	return errors.Newf("%s %q not found", collection, id).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Priority(errors.PriorityLow).
		Context("collection", string(collection)).
		Context("id", id).
		Build()
}

// validationError creates a validation error for a bad argument.
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// lookupError maps gorm's record-not-found to a not-found error.
func lookupError(err error, operation string, collection Collection, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(collection, id)
	}
	return dbError(err, operation, collection, "id", id)
}

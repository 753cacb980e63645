package bureau

import (
	"fmt"
	"strings"

	"github.com/peepybureau/bpi/internal/errors"
)

// User facing validation messages.
const (
	MsgMugshotRequired     = "Please upload a mugshot image."
	MsgSpecimenRequired    = "Please select at least one specimen."
	MsgNameRequired        = "Specimen name is required."
	MsgTitleRequired       = "Title is required."
	MsgConfirmationMissing = "Deletion requires confirmation."
	MsgConfirmationWrong   = "Confirmation does not match the record being deleted."
	MsgAdminRequired       = "At least one admin must remain."
)

// invalid builds a validation error for field carrying a user facing message.
func invalid(field, message string) error {
	return errors.Newf("%s", message).
		Component("bureau").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

func invalidValue(field string, value any, allowed any) error {
	return errors.New(fmt.Errorf("invalid %s %q, expected one of %v", field, value, allowed)).
		Component("bureau").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

// normalizeEmail lowercases and trims an address. Empty results and
// addresses without @ are rejected.
func normalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" || !strings.Contains(e, "@") {
		return "", invalid("allowedAdmins", fmt.Sprintf("%q is not an email address.", email))
	}
	return e, nil
}

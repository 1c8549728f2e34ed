package favourites

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// Validate collects errors and returns a *ValidationError if any exist.
func Validate(checks ...func() string) error {
	var errs []string
	for _, check := range checks {
		if msg := check(); msg != "" {
			errs = append(errs, msg)
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// RequirePositive reports a missing identifier.
func RequirePositive(field string, value int64) string {
	if value <= 0 {
		return fmt.Sprintf("%s is required", field)
	}
	return ""
}

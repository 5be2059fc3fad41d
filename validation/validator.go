package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/transcribe/errors"
)

// FieldError names a field and what is wrong with it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects field errors from chained checks:
//
//	err := validation.New().
//		Positive("poll_interval", c.PollInterval).
//		Min("batch_concurrency", c.BatchConcurrency, 1).
//		Validate("")
type Validator struct {
	errors []FieldError
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{}
}

func (v *Validator) check(ok bool, field, format string, args ...any) *Validator {
	if !ok {
		v.AddError(field, fmt.Sprintf(format, args...))
	}
	return v
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

// Errors returns the failed checks in order.
func (v *Validator) Errors() []FieldError { return v.errors }

// Validate returns nil, or one BAD_REQUEST error for requestID listing
// every failed check. The fields are also attached as the "fields" detail.
func (v *Validator) Validate(requestID string) *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	return newError(requestID, v.errors)
}

func newError(requestID string, fields []FieldError) *errors.AppError {
	parts := make([]string, len(fields))
	for i, e := range fields {
		parts[i] = e.Field + ": " + e.Message
	}
	return errors.BadRequest(requestID, strings.Join(parts, "; ")).WithDetail("fields", fields)
}

// Required fails on an empty or blank string.
func (v *Validator) Required(field, value string) *Validator {
	return v.check(strings.TrimSpace(value) != "", field, "is required")
}

// MaxLength fails when value is longer than maxLen bytes.
func (v *Validator) MaxLength(field, value string, maxLen int) *Validator {
	return v.check(len(value) <= maxLen, field, "must be %d characters or less", maxLen)
}

// Range fails when value is outside [minVal, maxVal].
func (v *Validator) Range(field string, value, minVal, maxVal int) *Validator {
	return v.check(value >= minVal && value <= maxVal, field, "must be between %d and %d", minVal, maxVal)
}

// Min fails when value is below minVal.
func (v *Validator) Min(field string, value, minVal int) *Validator {
	return v.check(value >= minVal, field, "must be at least %d", minVal)
}

// Positive fails on a zero or negative duration.
func (v *Validator) Positive(field string, d time.Duration) *Validator {
	return v.check(d > 0, field, "must be positive")
}

// Pattern fails when a non-empty value does not match pattern.
func (v *Validator) Pattern(field, value string, pattern *regexp.Regexp) *Validator {
	return v.check(value == "" || pattern.MatchString(value), field, "does not match required format")
}

// OneOf fails when a non-empty value is not in allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	return v.check(value == "" || slices.Contains(allowed, value), field, "must be one of: %s", strings.Join(allowed, ", "))
}

// Custom fails with message when condition is false.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	return v.check(condition, field, "%s", message)
}

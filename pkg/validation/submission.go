package validation

import (
	"errors"
	"fmt"
)

// Limits on a submitted form. Field contents are never rejected for being
// unparsable; the feature deriver absorbs those.
const (
	MaxFormFields  = 64
	MaxFieldName   = 64
	MaxFieldValue  = 256
	MaxUserIDChars = 128
)

// SubmissionRequestValidator validates observation submissions
type SubmissionRequestValidator struct{}

// NewSubmissionRequestValidator creates a new SubmissionRequestValidator
func NewSubmissionRequestValidator() *SubmissionRequestValidator {
	return &SubmissionRequestValidator{}
}

// ValidateForm bounds the size of a submitted form
func (v *SubmissionRequestValidator) ValidateForm(form map[string]string) error {
	if len(form) > MaxFormFields {
		return fmt.Errorf("form has %d fields, at most %d allowed", len(form), MaxFormFields)
	}

	tag := fmt.Sprintf("dive,keys,min=1,max=%d,printascii,endkeys,max=%d", MaxFieldName, MaxFieldValue)
	if err := engine().Var(form, tag); err != nil {
		return fmt.Errorf("form field names must be 1-%d printable characters and values at most %d characters", MaxFieldName, MaxFieldValue)
	}
	return nil
}

// ValidateUserID validates a caller-supplied user identifier
func (v *SubmissionRequestValidator) ValidateUserID(userID string) error {
	if userID == "" {
		return errors.New("user id cannot be empty")
	}
	if err := engine().Var(userID, fmt.Sprintf("max=%d,printascii", MaxUserIDChars)); err != nil {
		return fmt.Errorf("user id must be at most %d printable characters", MaxUserIDChars)
	}
	return nil
}

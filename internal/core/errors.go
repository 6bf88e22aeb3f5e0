package core

import "errors"

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidKind        = errors.New("kind must be Expense or Income")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrEmptyCategory      = errors.New("category not selected")
	ErrEmptySubcategory   = errors.New("subcategory not selected")
	ErrUnknownCategory    = errors.New("category does not exist for this kind")
	ErrUnknownSubcategory = errors.New("subcategory does not belong to category")
	ErrMissingColumns     = errors.New("missing required columns")
)

// ValidationError reports input the caller can correct and resubmit.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

package research

import (
	"errors"
	"fmt"
)

// ErrCompanyNotFound is returned before any record is created when the
// requested company does not exist.
var ErrCompanyNotFound = errors.New("company not found")

// ValidationError rejects a research request before anything is persisted or
// sent to a provider.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a caller mistake rather than a system
// failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrCompanyNotFound)
}

package entitlements

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("entitlements: not found")
	ErrAlreadyExists = errors.New("entitlements: already exists")
	ErrInvalidInput  = errors.New("entitlements: invalid input")

	// Profile errors
	ErrProfileNotFound = errors.New("entitlements: profile not found")
	ErrProfileExists   = errors.New("entitlements: profile already exists")
	ErrUnknownTenant   = errors.New("entitlements: tenant not resolvable from event")

	// Grant errors
	ErrGrantNotFound = errors.New("entitlements: grant not found")
	ErrGrantExpired  = errors.New("entitlements: grant expired")

	// Resource errors
	ErrClassNotFound   = errors.New("entitlements: class not found")
	ErrWordSetNotFound = errors.New("entitlements: word set not found")
	ErrStudentNotFound = errors.New("entitlements: class student not found")

	// Enforcement errors
	ErrQuotaExceeded = errors.New("entitlements: quota exceeded")
	ErrUnknownAction = errors.New("entitlements: unknown action")

	// Downgrade errors
	ErrSelectionTooLarge = errors.New("entitlements: keep selection exceeds target limits")
	ErrSelectionUnknown  = errors.New("entitlements: keep selection references unknown resource")
	ErrNothingToApply    = errors.New("entitlements: no pending downgrade for tenant")

	// Provider errors
	ErrProviderNotConfigured = errors.New("entitlements: provider not configured")
	ErrWebhookSignature      = errors.New("entitlements: webhook signature verification failed")

	// Store errors
	ErrStoreNotReady     = errors.New("entitlements: store not ready")
	ErrStoreClosed       = errors.New("entitlements: store is closed")
	ErrTransactionFailed = errors.New("entitlements: transaction failed")
	ErrMigrationFailed   = errors.New("entitlements: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("entitlements: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "entitlements: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("entitlements: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrGrantNotFound) ||
		errors.Is(err, ErrClassNotFound) ||
		errors.Is(err, ErrWordSetNotFound) ||
		errors.Is(err, ErrStudentNotFound)
}

// IsValidation returns true if the error is an input or selection
// validation failure.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnknownTenant) ||
		errors.Is(err, ErrSelectionTooLarge) ||
		errors.Is(err, ErrSelectionUnknown)
}

// IsQuotaError returns true if the error is related to quota/limits.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Exported error variables allow callers to use errors.Is() for error checking.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrBackupNotFound  = errors.New("backup not found")
	ErrInvalidProfile  = errors.New("invalid profile JSON")
	ErrBackupFailed    = errors.New("backup failed")
	ErrWriteFailed     = errors.New("write failed")
	ErrPermission      = errors.New("permission denied")

	ErrProfileNameEmpty        = errors.New("profile name cannot be empty")
	ErrProfileNameDot          = errors.New("profile name cannot be '.' or '..'")
	ErrProfileNameNonPrintable = errors.New("profile name contains non-printable characters")
	ErrProfileNameInvalidChars = errors.New("profile name contains invalid characters (<>:\"/|?*)")
	ErrProfileNameReserved     = errors.New("profile name is a reserved system filename")
)

// ValidationError reports the issues that make a profile unfit for switching.
// The issue list is advisory during parsing; only the switch operation treats
// it as fatal.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("profile validation failed: %s", strings.Join(e.Issues, "; "))
}

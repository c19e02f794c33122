package validator

import (
	"regexp"
	"strings"

	"github.com/hugolld/cc-api-switcher/internal/switcher/domain"
)

var (
	reservedNamePattern = regexp.MustCompile(`^(?i)(con|prn|aux|nul|com[1-9]|lpt[1-9])$`)
	invalidCharsPattern = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// ValidateName checks that a profile name is safe to embed in a filename on
// any supported filesystem: non-empty, printable ASCII, no path separators or
// reserved Windows device names.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) == 0 {
		return domain.ErrProfileNameEmpty
	}
	if trimmed == "." || trimmed == ".." {
		return domain.ErrProfileNameDot
	}
	for _, r := range trimmed {
		if r < 0x20 || r == 0x7f || r > 0x7e {
			return domain.ErrProfileNameNonPrintable
		}
	}
	if invalidCharsPattern.MatchString(trimmed) {
		return domain.ErrProfileNameInvalidChars
	}
	if reservedNamePattern.MatchString(trimmed) {
		return domain.ErrProfileNameReserved
	}
	return nil
}

// NormalizeName trims whitespace and validates the result.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := ValidateName(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

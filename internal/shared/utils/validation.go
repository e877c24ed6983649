package utils

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid input")

// String length limits
const (
	MaxIDLength      = 128
	MaxVersionLength = 256
	MaxURLLength     = 4096
)

// SafeIDPattern allows alphanumeric, hyphens, underscores. Bundle ids are
// directory names, so nothing that could escape a tree root is accepted.
var SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%w: %s must be at least %d characters", ErrInvalid, fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%w: %s must not exceed %d characters", ErrInvalid, fieldName, maxLen)
	}

	// Check for null bytes (security issue)
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%w: %s contains invalid characters", ErrInvalid, fieldName)
	}

	return nil
}

// ValidateBundleID validates a bundle id used as a directory name
func ValidateBundleID(id string) error {
	if err := ValidateString(id, "bundle id", 1, MaxIDLength, true); err != nil {
		return err
	}

	if !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%w: bundle id contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", ErrInvalid)
	}

	return nil
}

// ValidateVersionName validates a human-readable version. Empty is allowed.
func ValidateVersionName(version string) error {
	if err := ValidateString(version, "version", 0, MaxVersionLength, false); err != nil {
		return err
	}

	for _, r := range version {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: version contains control characters", ErrInvalid)
		}
	}
	return nil
}

// ValidateDownloadURL requires an absolute http or https URL with a host
func ValidateDownloadURL(raw string) error {
	if err := ValidateString(raw, "url", 1, MaxURLLength, true); err != nil {
		return err
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalid, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url scheme %q is not http or https", ErrInvalid, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrInvalid)
	}
	return nil
}

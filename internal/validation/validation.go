// Package validation provides input validation for decentradns.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// A label is lowercase alphanumeric with inner hyphens, 1-63 chars
var labelRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Sui addresses are 32 bytes, hex encoded with a 0x prefix
var suiAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)

// MaxDomainLength is the longest accepted domain name.
const MaxDomainLength = 253

// ValidateDomainName validates a domain name such as "example" or "example.dns"
func ValidateDomainName(name string) error {
	if name == "" {
		return errors.New("domain name cannot be empty")
	}
	if len(name) > MaxDomainLength {
		return fmt.Errorf("domain name too long (max %d chars)", MaxDomainLength)
	}
	if name != strings.ToLower(name) {
		return errors.New("domain name must be lowercase")
	}
	for _, label := range strings.Split(name, ".") {
		if label == "" {
			return errors.New("domain name contains an empty label")
		}
		if !labelRegex.MatchString(label) {
			return fmt.Errorf("invalid label %q: must be alphanumeric with inner hyphens, max 63 chars", label)
		}
	}
	return nil
}

// NormalizeDomainName lowercases and trims a user supplied name
func NormalizeDomainName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateSuiAddress validates a Sui account address
func ValidateSuiAddress(addr string) error {
	if !strings.HasPrefix(addr, "0x") {
		return errors.New("invalid address: must start with 0x")
	}
	if len(addr) != 66 {
		return errors.New("invalid address length: must be 66 characters (0x + 64 hex)")
	}
	if !suiAddressRegex.MatchString(addr) {
		return errors.New("invalid address: contains non-hex characters")
	}
	return nil
}

// RegistrationTerms are the registration durations on offer, in years.
var RegistrationTerms = []int{1, 2, 3, 5}

// ValidateDuration validates a registration duration in years
func ValidateDuration(years int) error {
	if !slices.Contains(RegistrationTerms, years) {
		return errors.New("duration must be 1, 2, 3 or 5 years")
	}
	return nil
}

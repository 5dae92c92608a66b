package util

import (
	"fmt"
	"regexp"
	"strings"
)

var ninRe = regexp.MustCompile(`^\d{11}$`)

// ValidateNIN enforces the 11-digit National Identification Number format.
func ValidateNIN(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !ninRe.MatchString(s) {
		return "", fmt.Errorf("nin must be 11 digits")
	}
	return s, nil
}

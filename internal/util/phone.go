package util

import (
	"errors"
	"strings"
)

const nigeriaCC = "234"

var (
	ErrPhoneRequired = errors.New("phone is required")
	ErrPhoneInvalid  = errors.New("phone contains invalid characters")
	ErrPhoneLength   = errors.New("phone must be in E.164 format")
)

// NormalizePhone returns the number as +<digits>. Numbers without a country code are
// treated as Nigerian: 0803 123 4567 and 803 123 4567 both become +2348031234567.
// A leading 00 is read as the international prefix.
func NormalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrPhoneRequired
	}

	var b strings.Builder
	plus := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0 && !plus:
			plus = true
		case r == ' ', r == '-', r == '(', r == ')', r == '.':
		default:
			return "", ErrPhoneInvalid
		}
	}
	digits := b.String()

	switch {
	case plus:
	case strings.HasPrefix(digits, "00"):
		digits = digits[2:]
	case len(digits) == 11 && digits[0] == '0':
		digits = nigeriaCC + digits[1:]
	case len(digits) == 10 && strings.ContainsRune("789", rune(digits[0])):
		digits = nigeriaCC + digits
	}

	if len(digits) < 8 || len(digits) > 15 || digits[0] == '0' {
		return "", ErrPhoneLength
	}
	return "+" + digits, nil
}

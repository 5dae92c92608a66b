package util

import (
	"crypto/rand"
	"errors"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	// bcrypt не принимает больше 72 байт.
	maxPasswordBytes = 72
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
	ErrPasswordNoLetter = errors.New("password must contain at least 1 letter")
)

// Без 0/O и 1/l/I: временный пароль диктуют водителю по телефону.
const (
	tempLetters  = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz"
	tempAlphabet = tempLetters + "23456789"
)

func ValidatePassword(pw string) error {
	if len([]rune(pw)) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if len(pw) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	for _, r := range pw {
		if unicode.IsLetter(r) {
			return nil
		}
	}
	return ErrPasswordNoLetter
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ComparePassword is false for accounts that never had a password set.
func ComparePassword(hash, pw string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// GenerateTempPassword returns a random password for recruited drivers. The first
// character is always a letter so the result passes ValidatePassword.
func GenerateTempPassword(length int) (string, error) {
	if length < 8 {
		length = 8
	}
	out := make([]byte, length)
	for i := range out {
		set := tempAlphabet
		if i == 0 {
			set = tempLetters
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return "", err
		}
		out[i] = set[n.Int64()]
	}
	return string(out), nil
}

// Package auth содержит хеширование паролей и подпись токенов сессий.
package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations задаёт число итераций PBKDF2-HMAC-SHA512.
	Iterations = 100_000
	keyLen     = 64
	saltLen    = 16
	separator  = "$"
)

// ErrEmptyPassword возвращается при попытке захешировать пустой пароль.
var ErrEmptyPassword = errors.New("password cannot be empty")

// HashPassword возвращает учётные данные вида "соль$хеш" в шестнадцатеричной записи.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)

	return saltHex + separator + hex.EncodeToString(derive(password, saltHex)), nil
}

// VerifyPassword сравнивает пароль с учётными данными за постоянное время.
// Некорректные учётные данные никогда не проходят проверку.
func VerifyPassword(password, credential string) bool {
	saltHex, hashHex, ok := strings.Cut(credential, separator)
	if !ok || saltHex == "" || strings.Contains(hashHex, separator) {
		return false
	}

	want, err := hex.DecodeString(hashHex)
	if err != nil || len(want) != keyLen {
		return false
	}

	return subtle.ConstantTimeCompare(want, derive(password, saltHex)) == 1
}

func derive(password, salt string) []byte {
	return pbkdf2.Key([]byte(password), []byte(salt), Iterations, keyLen, sha512.New)
}

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Signer подписывает значения HMAC-SHA256 с серверным секретом.
type Signer struct {
	secretKey []byte
}

// NewSigner создаёт Signer. Пустой секрет заменяется случайным ключом:
// выданные подписи тогда действуют только до перезапуска процесса.
func NewSigner(secret string) *Signer {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("auth: generate signing key: " + err.Error())
		}
	}

	return &Signer{secretKey: key}
}

// Sign возвращает подпись значения в шестнадцатеричной записи.
func (s *Signer) Sign(value string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// Seal возвращает значение cookie вида "значение.подпись".
func (s *Signer) Seal(value string) string {
	return value + "." + s.Sign(value)
}

// Open проверяет подпись значения cookie и возвращает подписанное значение.
func (s *Signer) Open(cookieValue string) (string, bool) {
	parts := strings.Split(cookieValue, ".")
	if len(parts) != 2 || parts[0] == "" {
		return "", false
	}

	value, signature := parts[0], parts[1]
	if !hmac.Equal([]byte(signature), []byte(s.Sign(value))) {
		return "", false
	}

	return value, true
}

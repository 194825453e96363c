package totp

import (
	"time"

	"github.com/pquerna/otp/totp"
)

// GenerateSecret membuat secret base32 baru (30s step, 6 digit, SHA1).
func GenerateSecret(email string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "TaskFlow",
		AccountName: email,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// CurrentCode mengembalikan kode 6 digit untuk time step saat ini.
func CurrentCode(secret string) (string, error) {
	return totp.GenerateCode(secret, time.Now())
}

// Verify memeriksa kode terhadap secret, dengan toleransi skew
// satu step sesuai algoritma standar.
func Verify(secret, code string) bool {
	return totp.Validate(code, secret)
}

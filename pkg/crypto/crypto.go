package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Parameter Argon2id yang dipakai untuk hash baru. Hash lama dengan parameter
// berbeda tetap bisa diverifikasi, tapi NeedsRehash akan mengembalikan true.
const (
	memory      = 64 * 1024
	iterations  = 3
	parallelism = 2
	saltLength  = 16
	keyLength   = 32
)

var ErrInvalidHash = errors.New("crypto: encoded hash is not in the expected format")

// HashPassword menghasilkan hash Argon2id dalam format encoded standar:
// $argon2id$v=19$m=...,t=...,p=...$<salt>$<digest>
func HashPassword(plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	digest := argon2.IDKey([]byte(plaintext), salt, iterations, memory, parallelism, keyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)
	return encoded, nil
}

// VerifyPassword memeriksa plaintext terhadap encoded hash.
// Perbandingan digest memakai constant time compare.
func VerifyPassword(encoded, plaintext string) (bool, error) {
	p, salt, digest, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	other := argon2.IDKey([]byte(plaintext), salt, p.iterations, p.memory, p.parallelism, uint32(len(digest)))
	if subtle.ConstantTimeCompare(digest, other) == 1 {
		return true, nil
	}
	return false, nil
}

// NeedsRehash mengembalikan true jika hash dibuat dengan parameter
// yang sudah tidak sesuai dengan parameter saat ini.
func NeedsRehash(encoded string) bool {
	p, salt, digest, err := decodeHash(encoded)
	if err != nil {
		return true
	}
	return p.memory != memory ||
		p.iterations != iterations ||
		p.parallelism != parallelism ||
		len(salt) != saltLength ||
		len(digest) != keyLength
}

type params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

func decodeHash(encoded string) (params, []byte, []byte, error) {
	var p params
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrInvalidHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return p, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	return p, salt, digest, nil
}

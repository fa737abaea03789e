package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters. The stored format is hex(hash) + "." + hex(salt).
const (
	ScryptN       = 16384
	ScryptR       = 8
	ScryptP       = 1
	ScryptKeyLen  = 64
	ScryptSaltLen = 16
)

var ErrMalformedHash = errors.New("malformed password hash")

// HashPassword hashes a password with scrypt and a random salt.
func HashPassword(password string) (string, error) {
	salt := make([]byte, ScryptSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash, err := scrypt.Key([]byte(password), salt, ScryptN, ScryptR, ScryptP, ScryptKeyLen)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hash) + "." + hex.EncodeToString(salt), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(password, stored string) (bool, error) {
	hashHex, saltHex, ok := strings.Cut(stored, ".")
	if !ok {
		return false, ErrMalformedHash
	}
	hash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false, ErrMalformedHash
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false, ErrMalformedHash
	}

	other, err := scrypt.Key([]byte(password), salt, ScryptN, ScryptR, ScryptP, len(hash))
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(hash, other) == 1, nil
}

// RandomPassword returns a random hex secret, used for guest and OAuth accounts.
func RandomPassword() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

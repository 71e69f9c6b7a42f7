package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"

	"github.com/pkg/errors"
)

const (
	otpLow  = 100000
	otpHigh = 999999

	// OpaqueTokenBytes is the entropy of reset and verification tokens.
	OpaqueTokenBytes = 32
)

// ErrWeakRandom is returned when the OS random source cannot be read.
var ErrWeakRandom = errors.New("secure random source unavailable")

var otpSpan = big.NewInt(otpHigh - otpLow + 1)

// Fingerprint returns the hex SHA-256 of the raw value.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}

// FingerprintMatches compares a raw value against a stored fingerprint in constant time.
func FingerprintMatches(raw, fingerprint string) bool {
	return ConstantTimeEqual(Fingerprint(raw), fingerprint)
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GenerateOTP draws a six digit code uniformly from [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", errors.Wrap(ErrWeakRandom, err.Error())
	}

	return big.NewInt(0).Add(n, big.NewInt(otpLow)).String(), nil
}

// GenerateOpaqueToken returns 32 random bytes hex-encoded.
func GenerateOpaqueToken() (string, error) {
	return RandomHex(OpaqueTokenBytes)
}

func RandomHex(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(ErrWeakRandom, err.Error())
	}

	return hex.EncodeToString(buf), nil
}

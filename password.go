package travelblog

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// legacyIterations is the PBKDF2 round count assumed for werkzeug hashes
// written without an explicit count ("pbkdf2:sha256$salt$hash").
const legacyIterations = 150000

// HashPassword returns a bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether plain matches hash. Besides bcrypt it
// accepts werkzeug "pbkdf2:sha256:<iterations>$<salt>$<hex>" hashes so
// accounts imported from the old site keep working.
func CheckPassword(hash, plain string) bool {
	if strings.HasPrefix(hash, "pbkdf2:") {
		return checkPBKDF2(hash, plain)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func checkPBKDF2(hash, plain string) bool {
	parts := strings.SplitN(hash, "$", 3)
	if len(parts) != 3 {
		return false
	}
	method := strings.Split(parts[0], ":")
	if len(method) < 2 || method[1] != "sha256" {
		return false
	}
	iterations := legacyIterations
	if len(method) == 3 {
		n, err := strconv.Atoi(method[2])
		if err != nil || n <= 0 {
			return false
		}
		iterations = n
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(plain), []byte(parts[1]), iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

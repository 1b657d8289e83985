package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword produces a salted bcrypt digest of the plaintext. bcrypt
// generates a fresh salt on every call, so hashing the same password twice
// yields different digests.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored digest. Malformed
// digests count as a mismatch.
func CheckPassword(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

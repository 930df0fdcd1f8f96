package utils

import "golang.org/x/crypto/bcrypt"

// HashToken is used by ops tooling to produce PUBSUB_PUSH_TOKEN_HASH values.
func HashToken(s string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
}

func CompareToken(hashed string, normal string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
}

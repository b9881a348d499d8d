package security

import "time"

// Test signing secret for unit tests only. Do not use in production.
const testSecret = "0123456789abcdef0123456789abcdef"

// NewTestTokenService returns a TokenService using the embedded test secret.
// For unit tests only.
func NewTestTokenService() *TokenService {
	return NewTokenService([]byte(testSecret), "test-issuer", 15*time.Minute, 168*time.Hour)
}

// NewTestHasher returns a Hasher with costs below the production floor so
// hashing stays fast in unit tests. For unit tests only.
func NewTestHasher() *Hasher {
	return &Hasher{memoryKiB: 8 * 1024, time: 1, parallelism: 1}
}

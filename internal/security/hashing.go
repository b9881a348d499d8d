package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrEmptyCredential is returned when an empty password is passed to Hash.
var ErrEmptyCredential = errors.New("empty credential")

// Argon2id parameter floors. NewHasher clamps anything weaker up to these.
const (
	minMemoryKiB  = 64 * 1024
	minTime       = 2
	minThreads    = 1
	saltLength    = 16
	keyLength     = 32
	argon2Version = argon2.Version
)

// Hasher hashes and verifies passwords using Argon2id. Parameters are fixed at
// construction; the encoded hash carries its own parameters so they can be raised
// later without invalidating stored hashes. Callers must not log or persist
// plaintext passwords.
type Hasher struct {
	memoryKiB   uint32
	time        uint32
	parallelism uint8
}

// NewHasher returns a Hasher with the given Argon2id costs. Values below the
// minimums (64 MiB memory, time 2, parallelism 1) are clamped up.
func NewHasher(memoryKiB, time, parallelism int) *Hasher {
	if memoryKiB < minMemoryKiB {
		memoryKiB = minMemoryKiB
	}
	if time < minTime {
		time = minTime
	}
	if parallelism < minThreads {
		parallelism = minThreads
	}
	if parallelism > 255 {
		parallelism = 255
	}
	return &Hasher{
		memoryKiB:   uint32(memoryKiB),
		time:        uint32(time),
		parallelism: uint8(parallelism),
	}
}

// Hash derives an Argon2id key from password with a fresh random salt and returns
// the self-describing encoded form:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<parallelism>$<b64 salt>$<b64 key>
//
// Returns ErrEmptyCredential for an empty password. The result is safe to store;
// the plaintext can never be reconstructed from it.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyCredential
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("hash salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.time, h.memoryKiB, h.parallelism, keyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version, h.memoryKiB, h.time, h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches the encoded hash. The key is re-derived
// with the parameters stored in the hash and compared in constant time. Returns
// false, never an error, on malformed input: a bad blob must be indistinguishable
// from a wrong password to callers.
func (h *Hasher) Verify(password, encoded string) bool {
	memoryKiB, time, parallelism, salt, key, ok := decodeHash(encoded)
	if !ok {
		return false
	}
	derived := argon2.IDKey([]byte(password), salt, time, memoryKiB, parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(derived, key) == 1
}

func decodeHash(encoded string) (memoryKiB, time uint32, parallelism uint8, salt, key []byte, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2Version {
		return 0, 0, 0, nil, nil, false
	}
	var p uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memoryKiB, &time, &p); err != nil {
		return 0, 0, 0, nil, nil, false
	}
	if memoryKiB == 0 || time == 0 || p == 0 || p > 255 {
		return 0, 0, 0, nil, nil, false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return 0, 0, 0, nil, nil, false
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return 0, 0, 0, nil, nil, false
	}
	return memoryKiB, time, uint8(p), salt, key, true
}

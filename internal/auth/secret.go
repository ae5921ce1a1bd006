package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/Ladvien/self-sensored/config"
)

const saltLength = 16

// dummyHash is verified against on every lookup miss so that a
// nonexistent key costs the same wall-clock time as a real one (spec
// §4.8: "timing should be constant with respect to hash-verification
// cost regardless of match outcome").
var dummyHash = mustHash("", config.AuthConfig{ArgonTimeCost: 1, ArgonMemoryKiB: 64 * 1024, ArgonThreads: 4})

// HashSecret derives an Argon2id hash encoded in a PHC-like string:
// argon2id$v=19$m=<kib>,t=<time>,p=<threads>$<salt>$<hash>.
func HashSecret(secret string, cfg config.AuthConfig) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return encodeHash(secret, salt, cfg), nil
}

func mustHash(secret string, cfg config.AuthConfig) string {
	h, err := HashSecret(secret, cfg)
	if err != nil {
		panic(err)
	}
	return h
}

func encodeHash(secret string, salt []byte, cfg config.AuthConfig) string {
	derived := argon2.IDKey([]byte(secret), salt, uint32(cfg.ArgonTimeCost), uint32(cfg.ArgonMemoryKiB), uint8(cfg.ArgonThreads), 32)
	return fmt.Sprintf("argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		cfg.ArgonMemoryKiB, cfg.ArgonTimeCost, cfg.ArgonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(derived),
	)
}

// VerifySecret re-derives the hash with the stored salt/params and
// compares in constant time.
func VerifySecret(secret, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		// Still do the work so failure here costs the same as a
		// mismatch, not a fast-path short-circuit.
		verifyAgainstDummy(secret)
		return false
	}

	var memKiB, timeCost, threads uint32
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &memKiB, &timeCost, &threads); err != nil {
		verifyAgainstDummy(secret)
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		verifyAgainstDummy(secret)
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		verifyAgainstDummy(secret)
		return false
	}

	got := argon2.IDKey([]byte(secret), salt, timeCost, memKiB, uint8(threads), uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// verifyAgainstDummy burns the same Argon2 cost as a real verification
// so "no candidate found" and "candidate found but wrong secret" are
// indistinguishable by timing.
func verifyAgainstDummy(secret string) {
	VerifySecret(secret, dummyHash)
}

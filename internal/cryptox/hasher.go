// Package cryptox implements password hashing for the credential store.
//
// Passwords are hashed with argon2id using the deployment-wide salt kept in
// the app_keys table. The encoded digest carries its cost parameters:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<base64 key>
//
// Digests written by earlier station releases (base64 of sha256 over
// password+salt, no "$" prefix) still verify; NeedsRehash reports them so
// callers can upgrade them after a successful login.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2idPrefix = "$argon2id$"

// ErrMalformedHash is returned when a stored digest cannot be parsed.
var ErrMalformedHash = errors.New("malformed password hash")

// Hasher holds argon2id cost parameters. The zero value is not usable;
// start from DefaultHasher.
type Hasher struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

// DefaultHasher returns the parameters used for newly written hashes.
func DefaultHasher() *Hasher {
	return &Hasher{Time: 3, Memory: 64 * 1024, Threads: 2, KeyLen: 32}
}

// Hash derives the digest for password with salt. Equal inputs always
// produce equal output.
func (h *Hasher) Hash(password, salt string) string {
	key := argon2.IDKey([]byte(password), []byte(salt), h.Time, h.Memory, h.Threads, h.KeyLen)
	return encode(h, key)
}

// Verify reports whether password hashes to stored under salt. Malformed
// digests never verify.
func (h *Hasher) Verify(password, salt, stored string) bool {
	if !strings.HasPrefix(stored, argon2idPrefix) {
		return subtle.ConstantTimeCompare([]byte(LegacyHash(password, salt)), []byte(stored)) == 1
	}

	params, key, err := decode(stored)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(password), []byte(salt), params.Time, params.Memory, params.Threads, params.KeyLen)
	return subtle.ConstantTimeCompare(key, candidate) == 1
}

// NeedsRehash reports whether stored was produced by a legacy scheme or
// with parameters other than h's.
func (h *Hasher) NeedsRehash(stored string) bool {
	if !strings.HasPrefix(stored, argon2idPrefix) {
		return true
	}
	params, _, err := decode(stored)
	if err != nil {
		return true
	}
	return *params != *h
}

// LegacyHash is the digest format of the first station releases:
// base64(sha256(password + salt)).
func LegacyHash(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func encode(h *Hasher, key []byte) string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s",
		argon2idPrefix, argon2.Version, h.Memory, h.Time, h.Threads,
		base64.RawStdEncoding.EncodeToString(key))
}

func decode(stored string) (*Hasher, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", "<key>"
	parts := strings.Split(stored, "$")
	if len(parts) != 5 {
		return nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, ErrMalformedHash
	}

	params := &Hasher{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return nil, nil, ErrMalformedHash
	}
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		return nil, nil, ErrMalformedHash
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(key) == 0 {
		return nil, nil, ErrMalformedHash
	}
	params.KeyLen = uint32(len(key))

	return params, key, nil
}

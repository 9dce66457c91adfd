package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MB
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// HashAPIKey hashes an API key using Argon2id. The result is
// "<base64 salt>$<base64 hash>".
func HashAPIKey(apiKey string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(apiKey), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.StdEncoding.EncodeToString(salt) + "$" + base64.StdEncoding.EncodeToString(hash), nil
}

// VerifyAPIKey checks an API key against an Argon2id hash.
func VerifyAPIKey(apiKey, encoded string) (bool, error) {
	h, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return h.matches(apiKey), nil
}

type keyHash struct {
	salt []byte
	hash []byte
}

func (h keyHash) matches(apiKey string) bool {
	computed := argon2.IDKey([]byte(apiKey), h.salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(h.hash, computed) == 1
}

func parseHash(encoded string) (keyHash, error) {
	saltB64, hashB64, ok := strings.Cut(strings.TrimSpace(encoded), "$")
	if !ok {
		return keyHash{}, fmt.Errorf("auth: invalid hash format")
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return keyHash{}, fmt.Errorf("auth: decode salt: %w", err)
	}
	hash, err := base64.StdEncoding.DecodeString(hashB64)
	if err != nil {
		return keyHash{}, fmt.Errorf("auth: decode hash: %w", err)
	}
	return keyHash{salt: salt, hash: hash}, nil
}

// KeySet is a parsed list of API key hashes.
type KeySet []keyHash

// ParseKeySet parses encoded hashes as produced by HashAPIKey.
func ParseKeySet(encoded []string) (KeySet, error) {
	ks := make(KeySet, 0, len(encoded))
	for i, e := range encoded {
		h, err := parseHash(e)
		if err != nil {
			return nil, fmt.Errorf("auth: api key hash %d: %w", i, err)
		}
		ks = append(ks, h)
	}
	return ks, nil
}

// Match reports the index of the hash apiKey matches. Every hash is checked
// so timing does not reveal which entry matched.
func (ks KeySet) Match(apiKey string) (int, bool) {
	found := -1
	for i, h := range ks {
		if h.matches(apiKey) && found < 0 {
			found = i
		}
	}
	return found, found >= 0
}

// Package auth authenticates analysts calling kanshi.
//
// Two credentials are accepted: EdDSA (Ed25519) JWTs signed by the
// workbench's identity service, and static API keys stored as Argon2id
// hashes. Authentication is off when neither is configured.
package auth

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer and Audience are the registered claims every token must carry.
	Issuer   = "kanshi"
	Audience = "kanshi"
)

// ErrUnauthenticated is returned for missing or invalid credentials.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// Claims extends jwt.RegisteredClaims with the analyst's display name.
type Claims struct {
	jwt.RegisteredClaims
	Analyst string `json:"analyst,omitempty"`
}

// Principal identifies an authenticated caller.
type Principal struct {
	Subject string
	// Method is "jwt" or "api_key".
	Method string
}

// Authenticator verifies Authorization header values.
type Authenticator struct {
	publicKey ed25519.PublicKey
	keys      KeySet
}

// NewAuthenticator creates an Authenticator. publicKey may be nil to
// disable JWTs; keys may be empty to disable API keys.
func NewAuthenticator(publicKey ed25519.PublicKey, keys KeySet) *Authenticator {
	return &Authenticator{publicKey: publicKey, keys: keys}
}

// Enabled reports whether any credential type is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && (a.publicKey != nil || len(a.keys) > 0)
}

// Authenticate checks an Authorization header of the form
// "Bearer <jwt>" or "ApiKey <key>".
func (a *Authenticator) Authenticate(header string) (Principal, error) {
	scheme, cred, ok := strings.Cut(strings.TrimSpace(header), " ")
	cred = strings.TrimSpace(cred)
	if !ok || cred == "" {
		return Principal{}, ErrUnauthenticated
	}

	switch {
	case strings.EqualFold(scheme, "Bearer") && a.publicKey != nil:
		claims, err := a.ValidateToken(cred)
		if err != nil {
			return Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return Principal{Subject: claims.Subject, Method: "jwt"}, nil
	case strings.EqualFold(scheme, "ApiKey") && len(a.keys) > 0:
		idx, ok := a.keys.Match(cred)
		if !ok {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{Subject: fmt.Sprintf("api_key:%d", idx), Method: "api_key"}, nil
	}
	return Principal{}, ErrUnauthenticated
}

// ValidateToken parses and validates a JWT, returning the claims.
func (a *Authenticator) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return a.publicKey, nil
		},
		jwt.WithAudience(Audience),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: validate token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	return claims, nil
}

// IssueToken signs a token for analyst subject. Used by the key tooling
// and tests; kanshi itself only verifies.
func IssueToken(priv ed25519.PrivateKey, subject, analyst string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
		Analyst: analyst,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// LoadPublicKey reads an Ed25519 public key from a PKIX PEM file.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from validated config, not user input
	if err != nil {
		return nil, fmt.Errorf("auth: read public key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("auth: decode public key PEM")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	edPub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("auth: public key is not Ed25519")
	}
	return edPub, nil
}

// LoadPrivateKey reads an Ed25519 private key from a PKCS#8 PEM file.
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's command line
	if err != nil {
		return nil, fmt.Errorf("auth: read private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("auth: decode private key PEM")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parse private key: %w", err)
	}
	edPriv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("auth: private key is not Ed25519")
	}
	return edPriv, nil
}

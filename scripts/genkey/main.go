// genkey manages credentials for kanshi's inbound authentication.
//
// Usage (run from the repo root):
//
//	go run ./scripts/genkey keypair            # data/jwt_private.pem, data/jwt_public.pem
//	go run ./scripts/genkey hash <api-key>     # prints a KANSHI_API_KEY_HASHES entry
//	go run ./scripts/genkey token <subject>    # signs a JWT with data/jwt_private.pem
//
// kanshi only needs the public key (KANSHI_JWT_PUBLIC_KEY). The private key
// belongs to whatever issues analyst tokens; keep it out of the service's
// environment. The data/ directory is gitignored.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/ashita-ai/kanshi/internal/auth"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		dir     string
		analyst string
		ttl     time.Duration
	)
	flagSet := pflag.NewFlagSet("genkey", pflag.ContinueOnError)
	flagSet.StringVar(&dir, "dir", "data", "directory holding the key pair")
	flagSet.StringVar(&analyst, "analyst", "", "analyst display name embedded in issued tokens")
	flagSet.DurationVar(&ttl, "ttl", 12*time.Hour, "lifetime of issued tokens")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		return errors.New("usage: genkey [flags] keypair | hash <api-key> | token <subject>")
	}
	switch rest[0] {
	case "keypair":
		return writeKeyPair(dir)
	case "hash":
		if len(rest) != 2 {
			return errors.New("usage: genkey hash <api-key>")
		}
		h, err := auth.HashAPIKey(rest[1])
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	case "token":
		if len(rest) != 2 {
			return errors.New("usage: genkey token <subject>")
		}
		priv, err := auth.LoadPrivateKey(filepath.Join(dir, "jwt_private.pem"))
		if err != nil {
			return err
		}
		token, exp, err := auth.IssueToken(priv, rest[1], analyst, ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
		return nil
	}
	return fmt.Errorf("unknown command %q", rest[0])
}

func writeKeyPair(dir string) error {
	privPath := filepath.Join(dir, "jwt_private.pem")
	pubPath := filepath.Join(dir, "jwt_public.pem")

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	// Refuse to overwrite existing keys; rotating invalidates live tokens.
	for _, path := range []string{privPath, pubPath} {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, delete it first if you want to rotate keys", path)
		}
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}
	if err := writePEM(privPath, "PRIVATE KEY", privDER); err != nil {
		return err
	}

	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return fmt.Errorf("marshal public key: %w", err)
	}
	if err := writePEM(pubPath, "PUBLIC KEY", pubDER); err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", privPath)
	fmt.Printf("wrote %s\n", pubPath)
	fmt.Printf("set KANSHI_JWT_PUBLIC_KEY=%s\n", pubPath)
	return nil
}

func writePEM(path, blockType string, der []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Package commands implements the regctl command tree. regctl is the client
// side of the registry: it generates mnemonics, mints caller tokens, signs
// consents, and drives the HTTP API for participants and operators.
package commands

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	jwttoken "idregistry/internal/jwt_token"
	"idregistry/internal/keys"
	"idregistry/pkg/domain"
)

var (
	serverURL string
	keyFile   string
	timeout   time.Duration
	audience  string
)

// Execute runs the regctl root command.
func Execute() error {
	root := &cobra.Command{
		Use:   "regctl",
		Short: "Identity registry client",
	}

	defaultKeyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultKeyFile = filepath.Join(home, ".regctl", "mnemonic")
	}

	root.PersistentFlags().StringVar(&serverURL, "server", envOr("REGCTL_SERVER", "http://localhost:8080"), "registry base URL")
	root.PersistentFlags().StringVar(&keyFile, "key-file", envOr("REGCTL_KEY_FILE", defaultKeyFile), "file holding the signing mnemonic")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
	root.PersistentFlags().StringVar(&audience, "audience", "", "token audience (empty uses the registry default)")

	root.AddCommand(
		keygenCmd(), tokenCmd(), consentCmd(),
		registerCmd(), transferCmd(), recoverCmd(), recoveryCmd(),
		resolveCmd(), statusCmd(), proxyCmd(), adminCmd(),
	)
	return root.Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadSigner reads the mnemonic file and derives the caller's signing key.
func loadSigner() (ed25519.PrivateKey, domain.Address, error) {
	if keyFile == "" {
		return nil, domain.ZeroAddress, fmt.Errorf("no key file configured (--key-file)")
	}
	raw, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, domain.ZeroAddress, fmt.Errorf("read key file: %w", err)
	}
	priv, addr, err := keys.Derive(string(raw))
	if err != nil {
		return nil, domain.ZeroAddress, fmt.Errorf("derive key from %s: %w", keyFile, err)
	}
	return priv, addr, nil
}

// mintToken issues a short-lived bearer token covering one API call.
func mintToken(priv ed25519.PrivateKey) (string, error) {
	return jwttoken.NewJWTService(audience).GenerateAccessToken(priv, 5*time.Minute)
}

// resolveDeadline turns the deadline/ttl flag pair into Unix seconds. An
// explicit deadline wins over the relative ttl.
func resolveDeadline(deadline int64, ttl time.Duration) int64 {
	if deadline > 0 {
		return deadline
	}
	return time.Now().Add(ttl).Unix()
}

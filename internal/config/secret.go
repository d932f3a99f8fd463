package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

const (
	secretFile     = ".craftbridge_secret"
	rconSecretFile = ".rcon_secret"

	SecretEnv = "CRAFTBRIDGE_SECRET_KEY"
)

// LoadOrGenerateSecret returns the API signing secret. The env var wins;
// otherwise the secret is read from configDir, generated on first use.
func LoadOrGenerateSecret(configDir string) string {
	return loadOrGenerate(configDir, secretFile, SecretEnv)
}

// LoadOrGenerateRCONPassword returns the RCON password written into
// server.properties when none is configured.
func LoadOrGenerateRCONPassword(configDir string) string {
	return loadOrGenerate(configDir, rconSecretFile, "")
}

func loadOrGenerate(configDir, name, env string) string {
	if env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}

	path := filepath.Join(configDir, name)
	if data, err := os.ReadFile(path); err == nil {
		if s := strings.TrimSpace(string(data)); s != "" {
			return s
		}
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	secret := hex.EncodeToString(buf)
	_ = os.WriteFile(path, []byte(secret), 0600)
	return secret
}

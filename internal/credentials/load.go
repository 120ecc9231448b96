// ABOUTME: Credential loading from environment and a YAML tenant table
// ABOUTME: Supports .env files for the single-tenant pair via godotenv

package credentials

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables carrying the single-tenant credential pair.
const (
	EnvKeyID     = "FLEET_API_KEY_ID"
	EnvKeySecret = "FLEET_API_KEY_SECRET"
)

// Options selects the credential sources to load.
type Options struct {
	// EnvFile, if set, supplies the single-tenant pair. Non-empty process
	// environment values win over file values.
	EnvFile string

	// TenantsFile, if set, is parsed as a YAML map of tenant id to pair.
	TenantsFile string
}

// tenantEntry is one row of the tenants file.
type tenantEntry struct {
	APIKeyID     string `yaml:"api_key_id"`
	APIKeySecret string `yaml:"api_key_secret"`
}

// Load reads credentials per opts and builds a Store. A process with neither
// source fails here with ErrNoSource so it cannot start serving tool calls.
func Load(opts Options) (*Store, error) {
	var fileVars map[string]string
	if opts.EnvFile != "" {
		var err error
		fileVars, err = godotenv.Read(opts.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", opts.EnvFile, err)
		}
	}

	defaultPair, err := pairFromEnv(fileVars)
	if err != nil {
		return nil, err
	}

	var tenants map[string]Pair
	if opts.TenantsFile != "" {
		tenants, err = loadTenantsFile(opts.TenantsFile)
		if err != nil {
			return nil, err
		}
	}

	return NewStore(defaultPair, tenants)
}

// pairFromEnv reads the single-tenant pair from the process environment,
// filling each variable from fileVars when it is unset or empty. An empty
// exported variable must not mask a valid env file. Both variables empty
// means no default is configured; exactly one is a configuration mistake and
// is rejected rather than yielding a half-filled pair.
func pairFromEnv(fileVars map[string]string) (*Pair, error) {
	keyID := os.Getenv(EnvKeyID)
	if keyID == "" {
		keyID = fileVars[EnvKeyID]
	}
	keySecret := os.Getenv(EnvKeySecret)
	if keySecret == "" {
		keySecret = fileVars[EnvKeySecret]
	}

	switch {
	case keyID == "" && keySecret == "":
		return nil, nil
	case keyID == "" || keySecret == "":
		return nil, fmt.Errorf("both %s and %s must be set", EnvKeyID, EnvKeySecret)
	}

	return &Pair{KeyID: keyID, KeySecret: keySecret}, nil
}

func loadTenantsFile(path string) (map[string]Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tenants file: %w", err)
	}

	var entries map[string]tenantEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing tenants file: %w", err)
	}

	tenants := make(map[string]Pair, len(entries))
	for tenantID, e := range entries {
		tenants[tenantID] = Pair{KeyID: e.APIKeyID, KeySecret: e.APIKeySecret}
	}
	return tenants, nil
}

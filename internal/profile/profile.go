package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the runtime configuration for the reviewflow client.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// ServerURL is the base URL of the remote review service
	ServerURL string
	// Data is the data directory for local state
	Data string
	// CredentialDSN points to the SQLite file holding the persisted session slots
	CredentialDSN string
	// RequestTimeout bounds every remote call
	RequestTimeout time.Duration
	// Version is the current version of the client
	Version string

	// Mock server configuration (serve-mock)
	MockAddr string // REVIEWFLOW_MOCK_ADDR
	MockPort int    // REVIEWFLOW_MOCK_PORT

	// AI suggestion configuration for the mock server
	AIOpenAIAPIKey  string // REVIEWFLOW_AI_OPENAI_API_KEY
	AIOpenAIBaseURL string // REVIEWFLOW_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AILLMModel      string // REVIEWFLOW_AI_LLM_MODEL (default: gpt-4o-mini)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the mock server can reach a live suggestion model.
func (p *Profile) IsAIEnabled() bool {
	return p.AIOpenAIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from REVIEWFLOW_* environment variables.
// Empty values are skipped so defaults take effect.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("REVIEWFLOW_MODE", valueOr(p.Mode, "dev"))
	p.ServerURL = getEnvOrDefault("REVIEWFLOW_SERVER_URL", valueOr(p.ServerURL, "http://localhost:28084"))
	p.Data = getEnvOrDefault("REVIEWFLOW_DATA", p.Data)

	if v := os.Getenv("REVIEWFLOW_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			p.RequestTimeout = d
		}
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = 30 * time.Second
	}

	p.MockAddr = getEnvOrDefault("REVIEWFLOW_MOCK_ADDR", valueOr(p.MockAddr, "127.0.0.1"))
	if v := os.Getenv("REVIEWFLOW_MOCK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			p.MockPort = port
		}
	}
	if p.MockPort == 0 {
		p.MockPort = 28084
	}

	p.AIOpenAIAPIKey = getEnvOrDefault("REVIEWFLOW_AI_OPENAI_API_KEY", p.AIOpenAIAPIKey)
	p.AIOpenAIBaseURL = getEnvOrDefault("REVIEWFLOW_AI_OPENAI_BASE_URL", valueOr(p.AIOpenAIBaseURL, "https://api.openai.com/v1"))
	p.AILLMModel = getEnvOrDefault("REVIEWFLOW_AI_LLM_MODEL", valueOr(p.AILLMModel, "gpt-4o-mini"))
}

func valueOr(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dataDir, 0o770); mkErr != nil {
			return "", errors.Wrapf(mkErr, "unable to create data folder %s", dataDir)
		}
	} else if err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and resolves derived paths.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Data == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to resolve home directory")
		}
		p.Data = filepath.Join(home, ".reviewflow")
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.CredentialDSN == "" {
		dbFile := fmt.Sprintf("reviewflow_%s.db", p.Mode)
		p.CredentialDSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of
// plain-text files. Each file holds one secret: the filename is the key
// name and the trimmed contents are the value.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// Key file names understood by icite.
const (
	AnthropicAPIKey  = "anthropic-api-key"
	OpenAIAPIKey     = "openai-api-key"
	DatabasePassword = "database-password"
)

// envVars maps each key to the environment variable that overrides it.
var envVars = map[string]string{
	AnthropicAPIKey:  "ANTHROPIC_API_KEY",
	OpenAIAPIKey:     "OPENAI_API_KEY",
	DatabasePassword: "ICITE_DATABASE_PASSWORD",
}

// Set is the collection of secrets read from a directory.
type Set map[string]string

// Load reads all files in dir and returns their trimmed contents by name.
// A missing directory is not an error and yields an empty Set. Unreadable
// files are logged and skipped.
func Load(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Set)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Lookup returns the value for key. The key's environment variable takes
// precedence over the file. The empty string means the secret is unset.
func (s Set) Lookup(key string) string {
	if env, ok := envVars[key]; ok {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return s[key]
}

// EnvVar returns the environment variable that overrides key, if any.
func EnvVar(key string) string {
	return envVars[key]
}

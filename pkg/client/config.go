package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Credentials are a worker's saved identity: which server it registered
// with and the bearer token it was issued. The token is only shown once
// at registration, so losing this file means registering again.
type Credentials struct {
	Server   string `json:"server"`
	WorkerID string `json:"worker_id"`
	Token    string `json:"token"`
}

const (
	configDirName  = "owp-pool"
	configFileName = "config.json"
)

// ConfigPath returns where credentials are stored:
// $XDG_CONFIG_HOME/owp-pool/config.json when XDG_CONFIG_HOME is set,
// otherwise ~/.config/owp-pool/config.json.
func ConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, configDirName, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", configDirName, configFileName), nil
}

// LoadCredentials reads the saved credentials. A missing file is not an
// error; it returns empty credentials.
func LoadCredentials() (*Credentials, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Credentials{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &creds, nil
}

// SaveCredentials writes credentials to the config path, creating the
// directory if needed, and returns the path written. The file carries
// the bearer token, so both the directory and the file get restrictive
// modes.
func SaveCredentials(creds *Credentials) (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return "", fmt.Errorf("write credentials: %w", err)
	}
	return path, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/homelab/provisiond/internal/datastore"
	"github.com/jbweber/homelab/provisiond/internal/remote"
)

// Config holds all configuration for the provisiond service
type Config struct {
	DBPath     string `yaml:"db_path"`
	ListenAddr string `yaml:"listen_addr"`

	SSH struct {
		User           string `yaml:"user"`
		PrivateKeyPath string `yaml:"private_key_path"`
		Password       string `yaml:"password"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"ssh"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	c := &Config{
		DBPath:     "~/provisiond/data/provisiond.db",
		ListenAddr: ":8080",
	}
	c.SSH.User = "root"
	c.SSH.TimeoutSeconds = 10
	return c
}

// Load reads a yaml config file over the defaults. A missing file is not
// an error; the defaults apply.
func Load(path string) (*Config, error) {
	c := NewConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return c, nil
}

// OpenDatastore opens the configured database, creating its directory
// when needed.
func (c *Config) OpenDatastore() (*datastore.Datastore, error) {
	dbPath := c.expandPath(c.DBPath)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	return datastore.New(dbPath)
}

// SSHDialer builds the session dialer from the configured SSH settings.
func (c *Config) SSHDialer() *remote.SSHDialer {
	return remote.NewSSHDialer(remote.SSHConfig{
		User:           c.SSH.User,
		PrivateKeyPath: c.expandPath(c.SSH.PrivateKeyPath),
		Password:       c.SSH.Password,
		Timeout:        time.Duration(c.SSH.TimeoutSeconds) * time.Second,
	})
}

// expandPath expands ~ to home directory
func (c *Config) expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Return original path if we can't get home dir
		return path
	}

	return filepath.Join(homeDir, path[2:])
}

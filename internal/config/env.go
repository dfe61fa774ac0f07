package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Env holds the settings taken from OXIDEWM_* environment variables.
type Env struct {
	Config      string `envconfig:"CONFIG"`
	Socket      string `envconfig:"SOCKET"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogDev      bool   `envconfig:"LOG_DEV" default:"false"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// LoadEnv reads the environment. An empty Socket is replaced with
// DefaultSocketPath.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("oxidewm", &env); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	if env.Socket == "" {
		env.Socket = DefaultSocketPath()
	}
	return &env, nil
}

// DefaultSocketPath is $XDG_RUNTIME_DIR/oxidewm.sock, or a per-user path in
// the temp directory when XDG_RUNTIME_DIR is unset.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "oxidewm.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("oxidewm-%d.sock", os.Getuid()))
}

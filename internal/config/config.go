package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that provide defaults for flags that weren't set on the command line.
const (
	EnvCapturesDir  = "RAWDUMP_CAPTURES_DIR"
	EnvListen       = "RAWDUMP_LISTEN"
	EnvReplayTarget = "RAWDUMP_REPLAY_TARGET"
	EnvLogLevel     = "RAWDUMP_LOG_LEVEL"
	EnvLogFormat    = "RAWDUMP_LOG_FORMAT"
)

// DefaultEnvFile is loaded if it exists. Unlike an explicitly chosen file, it's fine if it's missing.
const DefaultEnvFile = ".env"

// LoadEnvFile loads variables from path into the environment. Variables that are
// already set are not overwritten. Returns true if the file was loaded.
func LoadEnvFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}

	err := godotenv.Load(path)

	switch {
	case err == nil:
		return true, nil
	case path == DefaultEnvFile && errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
}

// Lookup returns the value of the environment variable name, and whether it was set to
// something non-empty.
func Lookup(name string) (string, bool) {
	value := os.Getenv(name)
	return value, value != ""
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "rawdump.env")

	require.NoError(t, os.WriteFile(envFile, []byte("RAWDUMP_CAPTURES_DIR=/var/lib/captures\nRAWDUMP_LISTEN=127.0.0.1:9000\n"), 0600))

	// t.Setenv restores the original values once the test completes.
	t.Setenv(EnvCapturesDir, "")
	require.NoError(t, os.Unsetenv(EnvCapturesDir))

	t.Setenv(EnvListen, "already-set:1")

	loaded, err := LoadEnvFile(envFile)
	require.NoError(t, err)
	require.True(t, loaded)

	value, ok := Lookup(EnvCapturesDir)
	require.True(t, ok)
	require.Equal(t, "/var/lib/captures", value)

	value, ok = Lookup(EnvListen)
	require.True(t, ok)
	require.Equal(t, "already-set:1", value)
}

func TestLoadEnvFile_Missing(t *testing.T) {
	loaded, err := LoadEnvFile(DefaultEnvFile)
	require.NoError(t, err, "the default .env file is optional (and doesn't exist in this folder)")
	require.False(t, loaded)

	loaded, err = LoadEnvFile("")
	require.NoError(t, err)
	require.False(t, loaded)

	_, err = LoadEnvFile("missing.env")
	require.ErrorContains(t, err, "failed to load env file missing.env")
}

func TestLookup(t *testing.T) {
	t.Setenv(EnvReplayTarget, "")

	_, ok := Lookup(EnvReplayTarget)
	require.False(t, ok)

	t.Setenv(EnvReplayTarget, "collector:10000")

	value, ok := Lookup(EnvReplayTarget)
	require.True(t, ok)
	require.Equal(t, "collector:10000", value)
}

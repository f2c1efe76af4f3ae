package shared_test

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/richardpark-msft/rawdump/internal/shared"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateServerCert(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "temp-cert-test-*")
	require.NoError(t, err)

	defer os.RemoveAll(tmpDir)

	certDir := filepath.Join(tmpDir, "certs")

	sc, err := shared.LoadOrCreateServerCert(certDir)
	require.NoError(t, err)
	require.FileExists(t, sc.CertFile)
	require.FileExists(t, sc.KeyFile)
	require.NotEmpty(t, sc.Certificate.Certificate)

	require.Equal(t, filepath.Join(certDir, "server.crt"), sc.CertFile)
	require.Equal(t, filepath.Join(certDir, "server.key"), sc.KeyFile)

	beforeCertStat, err := os.Stat(sc.CertFile)
	require.NoError(t, err)

	// now, "regen" again - it should just use the existing key/cert and not create a new one.
	sc2, err := shared.LoadOrCreateServerCert(certDir)
	require.NoError(t, err)
	require.Equal(t, sc.Certificate.Certificate, sc2.Certificate.Certificate)

	afterCertStat, err := os.Stat(sc2.CertFile)
	require.NoError(t, err)
	require.Equal(t, beforeCertStat.ModTime(), afterCertStat.ModTime())

	tlsConfig := sc2.TLSConfig()
	require.Len(t, tlsConfig.Certificates, 1)
	require.Equal(t, uint16(tls.VersionTLS12), tlsConfig.MinVersion)

	// a missing key means the pair gets regenerated
	require.NoError(t, os.Remove(sc.KeyFile))

	sc3, err := shared.LoadOrCreateServerCert(certDir)
	require.NoError(t, err)
	require.NotEqual(t, sc.Certificate.Certificate, sc3.Certificate.Certificate)
}

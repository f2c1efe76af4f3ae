package shared

import (
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"

	"github.com/madflojo/testcerts"
)

// ServerCert is a certificate and key pair, along with the files they were loaded from.
type ServerCert struct {
	CertFile    string
	KeyFile     string
	Certificate tls.Certificate
}

// TLSConfig returns a server side TLS config that uses this certificate.
func (sc ServerCert) TLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{sc.Certificate},
		MinVersion:   tls.VersionTLS12,
	}
}

// LoadOrCreateServerCert loads server.crt and server.key from dir. If either file is missing
// a new self-signed pair is generated, replacing both.
func LoadOrCreateServerCert(dir string) (ServerCert, error) {
	sc := ServerCert{
		CertFile: filepath.Join(dir, "server.crt"),
		KeyFile:  filepath.Join(dir, "server.key"),
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return ServerCert{}, fmt.Errorf("failed to create cert directory: %w", err)
	}

	_, certErr := os.Stat(sc.CertFile)
	_, keyErr := os.Stat(sc.KeyFile)

	if os.IsNotExist(certErr) || os.IsNotExist(keyErr) {
		if err := testcerts.GenerateCertsToFile(sc.CertFile, sc.KeyFile); err != nil {
			return ServerCert{}, fmt.Errorf("failed to generate cert: %w", err)
		}
	}

	cert, err := tls.LoadX509KeyPair(sc.CertFile, sc.KeyFile)

	if err != nil {
		return ServerCert{}, fmt.Errorf("failed to load cert: %w", err)
	}

	sc.Certificate = cert
	return sc, nil
}

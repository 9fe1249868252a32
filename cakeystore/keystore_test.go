package cakeystore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	return Config{
		Dir:          t.TempDir(),
		CommonName:   "Test Root CA",
		Organization: "cert-agent",
		Country:      "US",
		KeyBits:      2048,
	}
}

func TestLoadBootstrapsFreshCA(t *testing.T) {
	cfg := testConfig(t)
	ks, err := Load(cfg, zerolog.Nop())
	require.NoError(t, err)

	cert := ks.CACertificate()
	require.True(t, cert.IsCA)
	require.Equal(t, "Test Root CA", cert.Subject.CommonName)
	require.NotEmpty(t, ks.CACertificatePEM())
	require.Equal(t, 2048, ks.KeyBits())

	require.Equal(t, int64(1), cert.SerialNumber.Int64())
	require.True(t, cert.BasicConstraintsValid)
	require.Equal(t, 0, cert.MaxPathLen)
	require.True(t, cert.MaxPathLenZero)
	require.WithinDuration(t, cert.NotBefore.AddDate(10, 0, 0), cert.NotAfter, 2*time.Hour)
}

func TestLoadReopensExistingCA(t *testing.T) {
	cfg := testConfig(t)
	first, err := Load(cfg, zerolog.Nop())
	require.NoError(t, err)

	second, err := Load(cfg, zerolog.Nop())
	require.NoError(t, err)

	require.Equal(t, first.CACertificate().SerialNumber, second.CACertificate().SerialNumber)
	require.Equal(t, first.CACertificate().Raw, second.CACertificate().Raw)
}

func TestLoadRejectsPartialCADirectory(t *testing.T) {
	cfg := testConfig(t)
	ks, err := Load(cfg, zerolog.Nop())
	require.NoError(t, err)
	_ = ks

	// Remove only the key, leaving an orphaned certificate behind.
	require.NoError(t, os.Remove(filepath.Join(cfg.Dir, keyFileName)))

	_, err = Load(cfg, zerolog.Nop())
	require.Error(t, err)
}

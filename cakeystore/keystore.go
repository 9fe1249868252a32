// Package cakeystore owns the root certificate authority's key material: it
// bootstraps a self-signed CA on first run, or loads one left behind by a
// previous run, and exposes a narrow signing handle to the issuer. Nothing
// outside this package ever sees the CA private key.
package cakeystore

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/cert-agent/cert-agent/agenterrors"
)

const (
	certFileName = "ca-cert.pem"
	keyFileName  = "ca-key.pem"

	keyFilePerm  = 0o600
	certFilePerm = 0o644

	// caValidityYears is the lifetime of the self-signed root. Boulder's
	// ceremony tool takes this from an operator-supplied profile; this
	// agent bootstraps unattended, so it is fixed.
	caValidityYears = 10
)

// Config controls where the CA's key material lives and, on first-run
// bootstrap, what subject and key size to use.
type Config struct {
	// Dir holds ca-cert.pem and ca-key.pem. Created if missing.
	Dir string

	// CommonName, Organization and Country populate the root's subject
	// when it is bootstrapped. Ignored when loading an existing CA.
	CommonName   string
	Organization string
	Country      string

	// KeyBits is the RSA modulus size of a bootstrapped root. Defaults to
	// 2048. Ignored when loading an existing CA; leaves always match the
	// modulus size of the root actually in use (see Keystore.KeyBits).
	KeyBits int
}

func (c Config) keyBits() int {
	if c.KeyBits == 0 {
		return 2048
	}
	return c.KeyBits
}

// Keystore holds the CA certificate and its private key, and is the only
// thing in this process that can produce a signature under that key.
type Keystore struct {
	cert *x509.Certificate
	key  *rsa.PrivateKey
	log  zerolog.Logger
}

// Load opens the CA at cfg.Dir, bootstrapping a fresh self-signed root if
// the directory is empty. This mirrors Boulder's certificate authority
// startup, which treats a missing or unreadable issuer as fatal rather
// than attempting to repair it; an agent with a half-written CA on disk
// needs an operator, not a retry loop.
func Load(cfg Config, log zerolog.Logger) (*Keystore, error) {
	log = log.With().Str("component", "cakeystore").Logger()

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, agenterrors.IoError("creating CA directory %s: %s", cfg.Dir, err)
	}

	certPath := filepath.Join(cfg.Dir, certFileName)
	keyPath := filepath.Join(cfg.Dir, keyFileName)

	certExists := fileExists(certPath)
	keyExists := fileExists(keyPath)

	switch {
	case certExists && keyExists:
		log.Info().Str("dir", cfg.Dir).Msg("loading existing CA")
		return loadExisting(certPath, keyPath, log)
	case !certExists && !keyExists:
		log.Info().Str("dir", cfg.Dir).Msg("bootstrapping new CA")
		return bootstrap(cfg, certPath, keyPath, log)
	default:
		return nil, agenterrors.IoError("CA directory %s has only one of %s/%s; refusing to guess", cfg.Dir, certFileName, keyFileName)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadExisting(certPath, keyPath string, log zerolog.Logger) (*Keystore, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, agenterrors.IoError("reading CA certificate: %s", err)
	}
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, agenterrors.CryptoError("CA certificate %s is not valid PEM", certPath)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, agenterrors.CryptoError("parsing CA certificate: %s", err)
	}

	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, agenterrors.IoError("reading CA private key: %s", err)
	}
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, agenterrors.CryptoError("CA key %s is not valid PEM", keyPath)
	}
	parsedKey, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, agenterrors.CryptoError("parsing CA private key: %s", err)
	}
	key, ok := parsedKey.(*rsa.PrivateKey)
	if !ok {
		return nil, agenterrors.CryptoError("CA private key %s is not RSA", keyPath)
	}

	return &Keystore{cert: cert, key: key, log: log}, nil
}

func bootstrap(cfg Config, certPath, keyPath string, log zerolog.Logger) (*Keystore, error) {
	key, err := rsa.GenerateKey(rand.Reader, cfg.keyBits())
	if err != nil {
		return nil, agenterrors.CryptoError("generating CA key: %s", err)
	}

	now := time.Now()
	tpl := &x509.Certificate{
		// Fixed at 1, per spec: this is a single self-signed root, bootstrapped
		// once per process lifetime, not a CA that reissues itself.
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   cfg.CommonName,
			Organization: nonEmpty(cfg.Organization),
			Country:      nonEmpty(cfg.Country),
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(caValidityYears, 0, 0),
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}

	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &key.PublicKey, key)
	if err != nil {
		return nil, agenterrors.CryptoError("self-signing CA certificate: %s", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, agenterrors.CryptoError("parsing freshly signed CA certificate: %s", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(certPath, certPEM, certFilePerm); err != nil {
		return nil, agenterrors.IoError("writing CA certificate: %s", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, agenterrors.CryptoError("marshaling CA private key: %s", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(keyPath, keyPEM, keyFilePerm); err != nil {
		return nil, agenterrors.IoError("writing CA private key: %s", err)
	}

	log.Info().Str("common_name", cfg.CommonName).Time("not_after", tpl.NotAfter).Msg("bootstrapped new CA")

	return &Keystore{cert: cert, key: key, log: log}, nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// randomSerial returns a random positive serial below 2^63 (so it fits a
// signed 64-bit integer), following the spec's recommendation over a
// UUID-derived serial: the full width is random, not truncated to 32 bits
// of an otherwise-structured identifier.
func randomSerial() (*big.Int, error) {
	max := new(big.Int).Lsh(big.NewInt(1), 63)
	max.Sub(max, big.NewInt(1))
	serial, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, agenterrors.CryptoError("generating serial number: %s", err)
	}
	return serial.Add(serial, big.NewInt(1)), nil
}

// CACertificate returns the CA's own certificate, e.g. to embed in an
// IssuedResult or to serve as the trust anchor for mTLS.
func (k *Keystore) CACertificate() *x509.Certificate {
	return k.cert
}

// CACertificatePEM returns the CA certificate encoded as PEM.
func (k *Keystore) CACertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: k.cert.Raw})
}

// KeyBits reports the RSA modulus size leaves should be generated with, to
// match the root.
func (k *Keystore) KeyBits() int {
	return k.key.Size() * 8
}

// Sign issues a new certificate for tpl/pub under the CA key and returns
// the DER encoding. It never exposes the private key itself; callers
// outside this package cannot sign anything except through this method.
func (k *Keystore) Sign(tpl *x509.Certificate, pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.CreateCertificate(rand.Reader, tpl, k.cert, pub, k.key)
	if err != nil {
		return nil, agenterrors.CryptoError("signing certificate for %s: %s", tpl.Subject.CommonName, err)
	}
	return der, nil
}

// NewSerial generates a random serial number suitable for a leaf
// certificate: a full 63-bit random value, per spec.md's implementer
// note preferring this over 32 bits of a UUID.
func NewSerial() (*big.Int, error) {
	return randomSerial()
}

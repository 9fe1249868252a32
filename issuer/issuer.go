// Package issuer drives leaf certificate issuance and renewal: it builds an
// x509 template from an IssuanceRequest, generates the leaf's own key pair,
// has the cakeystore sign it, and persists both the record and the PEM
// pair. It is grounded on Boulder's certificate-authority IssueCertificate
// pipeline, adapted from a database-backed multi-tenant CA down to a
// single in-process root signing single-tenant leaves.
package issuer

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cert-agent/cert-agent/agenterrors"
	"github.com/cert-agent/cert-agent/cakeystore"
	"github.com/cert-agent/cert-agent/core"
	"github.com/cert-agent/cert-agent/store"
)

const (
	defaultValidityDays = 365
	leafKeyFilePerm     = 0o600
	leafCertFilePerm    = 0o644
)

// Config controls where issued leaf key material is written and the
// default validity applied when a request omits one.
type Config struct {
	// Dir holds <id>.crt/<id>.key pairs for every issued certificate.
	Dir string

	// DefaultValidityDays is used when an IssuanceRequest leaves
	// ValidityDays at zero.
	DefaultValidityDays int
}

func (c Config) validityDays() int {
	if c.DefaultValidityDays == 0 {
		return defaultValidityDays
	}
	return c.DefaultValidityDays
}

// Issuer mints and renews leaf certificates against a single keystore,
// persisting records through store and key material to disk.
type Issuer struct {
	cfg Config
	ks  *cakeystore.Keystore
	st  *store.Store
	log zerolog.Logger
}

// New builds an Issuer. It does not create cfg.Dir itself; Issue creates
// it, if missing, before writing each leaf's files.
func New(cfg Config, ks *cakeystore.Keystore, st *store.Store, log zerolog.Logger) *Issuer {
	return &Issuer{cfg: cfg, ks: ks, st: st, log: log.With().Str("component", "issuer").Logger()}
}

// Issue generates a key pair and certificate for req, signs it under the
// CA, writes both the record and the PEM pair, and returns the result the
// RPC facade hands back to the caller. The private key is returned exactly
// once, here; it is never re-derivable from the store afterward.
func (i *Issuer) Issue(ctx context.Context, req core.IssuanceRequest) (*core.IssuedResult, error) {
	if req.CommonName == "" {
		return nil, agenterrors.InvalidRequestError("common_name is required")
	}

	id := uuid.New().String()
	validityDays := req.ValidityDays
	if validityDays == 0 {
		validityDays = i.cfg.validityDays()
	}

	key, err := rsa.GenerateKey(rand.Reader, i.ks.KeyBits())
	if err != nil {
		return nil, agenterrors.CryptoError("generating leaf key for %s: %s", req.CommonName, err)
	}

	serial, err := cakeystore.NewSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	notAfter := now.AddDate(0, 0, validityDays)

	tpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      subjectName(req),
		NotBefore:    now.Add(-5 * time.Minute),
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	applySANs(tpl, req.DNSNames, req.IPAddresses)

	der, err := i.ks.Sign(tpl, &key.PublicKey)
	if err != nil {
		return nil, err
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, agenterrors.CryptoError("marshaling leaf private key for %s: %s", req.CommonName, err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	if err := i.persistLeafFiles(id, certPEM, keyPEM); err != nil {
		return nil, err
	}

	record := &core.CertificateRecord{
		ID:          id,
		CommonName:  req.CommonName,
		DNSNames:    req.DNSNames,
		IPAddresses: req.IPAddresses,
		Status:      core.StatusActive,
		IssuedAt:    now.Unix(),
		ExpiresAt:   notAfter.Unix(),
		Metadata:    req.Metadata,
	}
	if err := i.st.Put(ctx, record); err != nil {
		return nil, err
	}
	i.st.Publish(ctx, "issued", id)

	return &core.IssuedResult{
		ID:            id,
		CertPEM:       certPEM,
		PrivateKeyPEM: keyPEM,
		CAPEM:         i.ks.CACertificatePEM(),
		ExpiresAt:     notAfter.Unix(),
		Status:        core.StatusActive,
	}, nil
}

// Renew reissues the certificate identified by id under a fresh key pair
// and serial, reusing only its common name, SANs and metadata. Per
// the source policy this deliberately drops any subject organization/
// locality components a caller may have supplied at original issuance:
// renewal is a minimum-information operation, not a mutation of the
// original request. validityDays of 0 uses the configured default,
// matching the RPC contract's "0 = use default". The predecessor record
// is revoked once the new certificate is issued, so both the RPC path and
// the auto-renewal path retire the old id the same way.
func (i *Issuer) Renew(ctx context.Context, id string, validityDays int) (*core.IssuedResult, error) {
	existing, err := i.st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != core.StatusActive {
		return nil, agenterrors.StatusConflictError("certificate %s has status %s, not active; cannot renew", id, existing.Status)
	}

	if validityDays == 0 {
		validityDays = i.cfg.validityDays()
	}

	req := core.IssuanceRequest{
		CommonName:   existing.CommonName,
		DNSNames:     existing.DNSNames,
		IPAddresses:  existing.IPAddresses,
		ValidityDays: validityDays,
		Metadata:     existing.Metadata,
	}

	result, err := i.Issue(ctx, req)
	if err != nil {
		return nil, err
	}

	// The renewed certificate keeps its own new id; the old record is
	// retired by revocation rather than deleted, matching the spec's
	// "renew never deletes the old record" contract.
	if err := i.st.UpdateStatus(ctx, id, core.StatusRevoked); err != nil {
		i.log.Error().Err(err).Str("id", id).Msg("failed to revoke predecessor after renewal")
	} else {
		i.st.Publish(ctx, "revoked", id)
	}

	i.st.Publish(ctx, "renewed", result.ID)
	return result, nil
}

// Revoke flips a record's status to revoked. It never deletes the leaf
// files on disk; they remain as an audit trail. The cleanup sweep only
// removes records whose status is expired (and their files), so it does
// not remove a revoked certificate's record or files.
// An empty reason publishes a bare "revoked:<id>" event; a non-empty one
// appends it as "revoked:<id>:<reason>".
func (i *Issuer) Revoke(ctx context.Context, id, reason string) error {
	if err := i.st.UpdateStatus(ctx, id, core.StatusRevoked); err != nil {
		return err
	}
	if reason != "" {
		i.st.Publish(ctx, "revoked", fmt.Sprintf("%s:%s", id, reason))
	} else {
		i.st.Publish(ctx, "revoked", id)
	}
	return nil
}

func subjectName(req core.IssuanceRequest) pkix.Name {
	name := pkix.Name{CommonName: req.CommonName}
	if req.Subject.Organization != "" {
		name.Organization = []string{req.Subject.Organization}
	}
	if req.Subject.OrganizationalUnit != "" {
		name.OrganizationalUnit = []string{req.Subject.OrganizationalUnit}
	}
	if req.Subject.Country != "" {
		name.Country = []string{req.Subject.Country}
	}
	if req.Subject.State != "" {
		name.Province = []string{req.Subject.State}
	}
	if req.Subject.Locality != "" {
		name.Locality = []string{req.Subject.Locality}
	}
	return name
}

func applySANs(tpl *x509.Certificate, dnsNames, ipAddresses []string) {
	tpl.DNSNames = dnsNames
	for _, raw := range ipAddresses {
		if ip := net.ParseIP(raw); ip != nil {
			tpl.IPAddresses = append(tpl.IPAddresses, ip)
		}
	}
}

func (i *Issuer) persistLeafFiles(id string, certPEM, keyPEM []byte) error {
	if err := os.MkdirAll(i.cfg.Dir, 0o755); err != nil {
		return agenterrors.IoError("creating storage directory: %s", err)
	}
	if err := os.WriteFile(i.LeafCertPath(id), certPEM, leafCertFilePerm); err != nil {
		return agenterrors.IoError("writing leaf certificate for %s: %s", id, err)
	}
	if err := os.WriteFile(i.LeafKeyPath(id), keyPEM, leafKeyFilePerm); err != nil {
		return agenterrors.IoError("writing leaf key for %s: %s", id, err)
	}
	return nil
}

// LeafCertPath returns the on-disk path of an issued certificate's PEM file,
// <storage_path>/<id>.crt per spec.
func (i *Issuer) LeafCertPath(id string) string {
	return filepath.Join(i.cfg.Dir, id+".crt")
}

// LeafKeyPath returns the on-disk path of an issued certificate's private
// key, <storage_path>/<id>.key per spec. Used by the renewer's cleanup
// sweep to remove it alongside the record.
func (i *Issuer) LeafKeyPath(id string) string {
	return filepath.Join(i.cfg.Dir, id+".key")
}

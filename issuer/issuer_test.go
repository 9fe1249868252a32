package issuer

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cert-agent/cert-agent/agenterrors"
	"github.com/cert-agent/cert-agent/cakeystore"
	"github.com/cert-agent/cert-agent/core"
	"github.com/cert-agent/cert-agent/store"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()

	ks, err := cakeystore.Load(cakeystore.Config{
		Dir:          t.TempDir(),
		CommonName:   "Test Root CA",
		Organization: "cert-agent",
		Country:      "US",
		KeyBits:      2048,
	}, zerolog.Nop())
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := store.NewFromClient(rdb, zerolog.Nop())

	return New(Config{Dir: t.TempDir()}, ks, st, zerolog.Nop())
}

func TestIssueProducesValidLeaf(t *testing.T) {
	iss := newTestIssuer(t)
	ctx := context.Background()

	result, err := iss.Issue(ctx, core.IssuanceRequest{
		CommonName:   "svc.example.com",
		DNSNames:     []string{"svc.example.com"},
		IPAddresses:  []string{"10.0.0.5"},
		ValidityDays: 30,
		Metadata:     map[string]string{"team": "infra"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.ID)
	require.Equal(t, core.StatusActive, result.Status)

	block, _ := pem.Decode(result.CertPEM)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	require.Equal(t, "svc.example.com", cert.Subject.CommonName)
	require.Contains(t, cert.DNSNames, "svc.example.com")
	require.False(t, cert.IsCA)

	caBlock, _ := pem.Decode(result.CAPEM)
	require.NotNil(t, caBlock)
	ca, err := x509.ParseCertificate(caBlock.Bytes)
	require.NoError(t, err)

	require.NoError(t, cert.CheckSignatureFrom(ca))

	keyBlock, _ := pem.Decode(result.PrivateKeyPEM)
	require.NotNil(t, keyBlock)
	require.Equal(t, "PRIVATE KEY", keyBlock.Type)
	_, err = x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	require.NoError(t, err)

	require.FileExists(t, iss.LeafCertPath(result.ID))
	require.FileExists(t, iss.LeafKeyPath(result.ID))
}

func TestIssueRejectsEmptyCommonName(t *testing.T) {
	iss := newTestIssuer(t)
	_, err := iss.Issue(context.Background(), core.IssuanceRequest{})
	require.True(t, agenterrors.Is(err, agenterrors.InvalidRequest))
}

func TestRenewIssuesNewIDAndKeepsOldRecord(t *testing.T) {
	iss := newTestIssuer(t)
	ctx := context.Background()

	original, err := iss.Issue(ctx, core.IssuanceRequest{
		CommonName: "svc.example.com",
		DNSNames:   []string{"svc.example.com"},
		Subject:    core.SubjectComponents{Organization: "should-be-dropped"},
	})
	require.NoError(t, err)

	renewed, err := iss.Renew(ctx, original.ID, 0)
	require.NoError(t, err)
	require.NotEqual(t, original.ID, renewed.ID)

	block, _ := pem.Decode(renewed.CertPEM)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	require.Empty(t, cert.Subject.Organization)

	old, err := iss.st.Get(ctx, original.ID)
	require.NoError(t, err)
	require.Equal(t, core.StatusRevoked, old.Status)
}

func TestRenewRejectsRevokedCertificate(t *testing.T) {
	iss := newTestIssuer(t)
	ctx := context.Background()

	original, err := iss.Issue(ctx, core.IssuanceRequest{CommonName: "svc.example.com"})
	require.NoError(t, err)
	require.NoError(t, iss.Revoke(ctx, original.ID, ""))

	_, err = iss.Renew(ctx, original.ID, 0)
	require.True(t, agenterrors.Is(err, agenterrors.StatusConflict))
}

func TestRevokeIsIdempotent(t *testing.T) {
	iss := newTestIssuer(t)
	ctx := context.Background()

	original, err := iss.Issue(ctx, core.IssuanceRequest{CommonName: "svc.example.com"})
	require.NoError(t, err)

	require.NoError(t, iss.Revoke(ctx, original.ID, "key compromise"))
	require.NoError(t, iss.Revoke(ctx, original.ID, "key compromise"))

	record, err := iss.st.Get(ctx, original.ID)
	require.NoError(t, err)
	require.Equal(t, core.StatusRevoked, record.Status)
}

func TestRevokeUnknownIDIsNoop(t *testing.T) {
	iss := newTestIssuer(t)
	require.NoError(t, iss.Revoke(context.Background(), "never-issued", ""))
}

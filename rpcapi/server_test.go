package rpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/cert-agent/cert-agent/cakeystore"
	"github.com/cert-agent/cert-agent/certagentpb"
	"github.com/cert-agent/cert-agent/issuer"
	"github.com/cert-agent/cert-agent/lifecycle"
	"github.com/cert-agent/cert-agent/store"
)

// newTestClient boots a Server over an in-memory bufconn listener, the
// standard grpc-go pattern for exercising a service without a real socket.
func newTestClient(t *testing.T) certagentpb.CertAgentClient {
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

	iss := issuer.New(issuer.Config{Dir: t.TempDir()}, ks, st, zerolog.Nop())
	life := lifecycle.New(st)
	srv := New(Config{}, iss, life, st, zerolog.Nop())

	lis := bufconn.Listen(1024 * 1024)
	grpcServer := grpc.NewServer()
	certagentpb.RegisterCertAgentServer(grpcServer, srv)
	go grpcServer.Serve(lis)
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return certagentpb.NewCertAgentClient(conn)
}

func TestIssueCertificateOverGRPC(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.IssueCertificate(ctx, &certagentpb.IssueCertificateRequest{
		CommonName: "svc.example.com",
		DnsNames:   []string{"svc.example.com"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.CertificateId)
	require.Equal(t, "active", resp.Status)
	require.NotEmpty(t, resp.CertificatePem)
}

func TestGetCertificateStatusNotFound(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.GetCertificateStatus(ctx, &certagentpb.GetCertificateStatusRequest{CertificateId: "missing"})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.NotFound, st.Code())
}

func TestRevokeCertificateNeverReturnsTransportError(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.RevokeCertificate(ctx, &certagentpb.RevokeCertificateRequest{CertificateId: "never-issued"})
	require.NoError(t, err)
	require.True(t, resp.Success) // revoke of an unknown id is a no-op success, not a failure
}

func TestListCertificatesFiltersByStatus(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.IssueCertificate(ctx, &certagentpb.IssueCertificateRequest{CommonName: "a.example.com"})
	require.NoError(t, err)
	issued, err := client.IssueCertificate(ctx, &certagentpb.IssueCertificateRequest{CommonName: "b.example.com"})
	require.NoError(t, err)

	_, err = client.RevokeCertificate(ctx, &certagentpb.RevokeCertificateRequest{CertificateId: issued.CertificateId})
	require.NoError(t, err)

	resp, err := client.ListCertificates(ctx, &certagentpb.ListCertificatesRequest{StatusFilter: "revoked"})
	require.NoError(t, err)
	require.Len(t, resp.Certificates, 1)
	require.Equal(t, issued.CertificateId, resp.Certificates[0].CertificateId)
}

func TestRenewCertificateHonorsValidityDays(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	issued, err := client.IssueCertificate(ctx, &certagentpb.IssueCertificateRequest{CommonName: "svc.example.com"})
	require.NoError(t, err)

	renewed, err := client.RenewCertificate(ctx, &certagentpb.RenewCertificateRequest{
		CertificateId: issued.CertificateId,
		ValidityDays:  7,
	})
	require.NoError(t, err)
	require.NotEqual(t, issued.CertificateId, renewed.CertificateId)
	require.WithinDuration(t, time.Now().AddDate(0, 0, 7), time.Unix(renewed.ExpiresAt, 0), time.Hour)

	predecessor, err := client.GetCertificateStatus(ctx, &certagentpb.GetCertificateStatusRequest{CertificateId: issued.CertificateId})
	require.NoError(t, err)
	require.Equal(t, "revoked", predecessor.Status)
}

func TestRenewCertificateRejectsNonActive(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	issued, err := client.IssueCertificate(ctx, &certagentpb.IssueCertificateRequest{CommonName: "svc.example.com"})
	require.NoError(t, err)

	_, err = client.RevokeCertificate(ctx, &certagentpb.RevokeCertificateRequest{CertificateId: issued.CertificateId})
	require.NoError(t, err)

	_, err = client.RenewCertificate(ctx, &certagentpb.RenewCertificateRequest{CertificateId: issued.CertificateId})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.Internal, st.Code())
}

func TestListCertificatesRejectsUnknownStatus(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.ListCertificates(ctx, &certagentpb.ListCertificatesRequest{StatusFilter: "bogus"})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.InvalidArgument, st.Code())
}

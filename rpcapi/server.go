// Package rpcapi exposes the certificate lifecycle engine over gRPC. It
// translates each CertAgentServer method into a call against issuer and
// lifecycle (and the store's event feed for WatchCertificates), and maps
// the agenterrors taxonomy onto gRPC status codes. The mTLS setup follows
// cuemby-warren's api.Server: the server certificate, its key and an
// optional client CA are supplied as PEM in TLSConfig. Client certificates
// are requested; they are required only when RequireClientCert is set and
// a client CA is configured, since not every RPC needs caller identity.
package rpcapi

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	"github.com/cert-agent/cert-agent/agenterrors"
	"github.com/cert-agent/cert-agent/certagentpb"
	"github.com/cert-agent/cert-agent/core"
	"github.com/cert-agent/cert-agent/issuer"
	"github.com/cert-agent/cert-agent/lifecycle"
	"github.com/cert-agent/cert-agent/store"
)

const maxMessageSize = 4 * 1024 * 1024 // 4 MiB

// TLSConfig controls the optional mTLS listener. When Enabled is false the
// server binds in plaintext, which is appropriate only for local
// development or when a service mesh terminates TLS in front of it.
type TLSConfig struct {
	Enabled           bool
	ServerCertPEM     []byte
	ServerKeyPEM      []byte
	ClientCACertPEM   []byte
	RequireClientCert bool
}

// Config controls how the gRPC listener binds.
type Config struct {
	BindAddress string
	TLS         TLSConfig
}

func (c Config) bindAddress() string {
	if c.BindAddress == "" {
		return "0.0.0.0:50051"
	}
	return c.BindAddress
}

// Server wires the gRPC CertAgentServer surface to the lifecycle engine.
type Server struct {
	certagentpb.UnimplementedCertAgentServer

	cfg    Config
	issuer *issuer.Issuer
	life   *lifecycle.Lifecycle
	st     *store.Store
	log    zerolog.Logger
	grpc   *grpc.Server
}

// New builds a Server. The gRPC server itself is constructed lazily in
// Serve, once TLS credentials (if any) are resolved.
func New(cfg Config, iss *issuer.Issuer, life *lifecycle.Lifecycle, st *store.Store, log zerolog.Logger) *Server {
	return &Server{cfg: cfg, issuer: iss, life: life, st: st, log: log.With().Str("component", "rpcapi").Logger()}
}

// Serve binds cfg.BindAddress and blocks until ctx is canceled or the
// listener fails.
func (s *Server) Serve(ctx context.Context) error {
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(maxMessageSize),
		grpc.MaxSendMsgSize(maxMessageSize),
	}

	if s.cfg.TLS.Enabled {
		creds, err := s.buildTLSCredentials()
		if err != nil {
			return err
		}
		opts = append(opts, grpc.Creds(creds))
	}

	s.grpc = grpc.NewServer(opts...)
	certagentpb.RegisterCertAgentServer(s.grpc, s)

	lis, err := net.Listen("tcp", s.cfg.bindAddress())
	if err != nil {
		return agenterrors.IoError("binding gRPC listener on %s: %s", s.cfg.bindAddress(), err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", s.cfg.bindAddress()).Bool("tls", s.cfg.TLS.Enabled).Msg("gRPC server listening")
		errCh <- s.grpc.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) buildTLSCredentials() (credentials.TransportCredentials, error) {
	cert, err := tls.X509KeyPair(s.cfg.TLS.ServerCertPEM, s.cfg.TLS.ServerKeyPEM)
	if err != nil {
		return nil, agenterrors.CryptoError("loading server certificate: %s", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		ClientAuth:   tls.RequestClientCert,
	}

	if len(s.cfg.TLS.ClientCACertPEM) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(s.cfg.TLS.ClientCACertPEM) {
			return nil, agenterrors.CryptoError("parsing client CA certificate")
		}
		tlsConfig.ClientCAs = pool
		if s.cfg.TLS.RequireClientCert {
			tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		} else {
			tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
		}
	}

	return credentials.NewTLS(tlsConfig), nil
}

// IssueCertificate implements certagentpb.CertAgentServer.
func (s *Server) IssueCertificate(ctx context.Context, req *certagentpb.IssueCertificateRequest) (*certagentpb.IssueCertificateResponse, error) {
	s.log.Info().Str("common_name", req.CommonName).Msg("issuing certificate")

	result, err := s.issuer.Issue(ctx, core.IssuanceRequest{
		CommonName:   req.CommonName,
		DNSNames:     req.DnsNames,
		IPAddresses:  req.IpAddresses,
		ValidityDays: int(req.ValidityDays),
		Subject: core.SubjectComponents{
			Organization:       req.Organization,
			OrganizationalUnit: req.Ou,
			Country:            req.Country,
			State:              req.State,
			Locality:           req.Locality,
		},
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return &certagentpb.IssueCertificateResponse{
		CertificateId:    result.ID,
		CertificatePem:   string(result.CertPEM),
		PrivateKeyPem:    string(result.PrivateKeyPEM),
		CaCertificatePem: string(result.CAPEM),
		ExpiresAt:        result.ExpiresAt,
		Status:           string(result.Status),
	}, nil
}

// RenewCertificate implements certagentpb.CertAgentServer.
func (s *Server) RenewCertificate(ctx context.Context, req *certagentpb.RenewCertificateRequest) (*certagentpb.RenewCertificateResponse, error) {
	s.log.Info().Str("certificate_id", req.CertificateId).Msg("renewing certificate")

	result, err := s.issuer.Renew(ctx, req.CertificateId, int(req.ValidityDays))
	if err != nil {
		return nil, toStatus(err)
	}

	return &certagentpb.RenewCertificateResponse{
		CertificateId:    result.ID,
		CertificatePem:   string(result.CertPEM),
		PrivateKeyPem:    string(result.PrivateKeyPEM),
		CaCertificatePem: string(result.CAPEM),
		ExpiresAt:        result.ExpiresAt,
		Status:           string(result.Status),
	}, nil
}

// RevokeCertificate implements certagentpb.CertAgentServer. It never
// returns a transport error for a failed revoke: success=false explains
// the failure in Message instead, matching the contract the original
// implementation established.
func (s *Server) RevokeCertificate(ctx context.Context, req *certagentpb.RevokeCertificateRequest) (*certagentpb.RevokeCertificateResponse, error) {
	s.log.Info().Str("certificate_id", req.CertificateId).Msg("revoking certificate")

	if err := s.issuer.Revoke(ctx, req.CertificateId, req.Reason); err != nil {
		return &certagentpb.RevokeCertificateResponse{
			Success: false,
			Message: fmt.Sprintf("failed to revoke certificate: %s", err),
		}, nil
	}

	return &certagentpb.RevokeCertificateResponse{Success: true, Message: "certificate revoked"}, nil
}

// GetCertificateStatus implements certagentpb.CertAgentServer.
func (s *Server) GetCertificateStatus(ctx context.Context, req *certagentpb.GetCertificateStatusRequest) (*certagentpb.CertificateStatusResponse, error) {
	record, err := s.life.Status(ctx, req.CertificateId)
	if err != nil {
		return nil, toStatus(err)
	}
	return recordToProto(record), nil
}

// ListCertificates implements certagentpb.CertAgentServer.
func (s *Server) ListCertificates(ctx context.Context, req *certagentpb.ListCertificatesRequest) (*certagentpb.ListCertificatesResponse, error) {
	var filter *core.Status
	if req.StatusFilter != "" {
		st := core.Status(req.StatusFilter)
		if !st.Valid() {
			return nil, status.Errorf(codes.InvalidArgument, "unknown status filter %q", req.StatusFilter)
		}
		filter = &st
	}

	records, err := s.life.List(ctx, filter)
	if err != nil {
		return nil, toStatus(err)
	}

	out := make([]*certagentpb.CertificateStatusResponse, 0, len(records))
	for _, record := range records {
		out = append(out, recordToProto(record))
	}
	return &certagentpb.ListCertificatesResponse{Certificates: out}, nil
}

// WatchCertificates implements certagentpb.CertAgentServer. It streams
// cert_events published through the store, filtered to the requested ids
// when any were given, for as long as the client keeps the stream open.
func (s *Server) WatchCertificates(req *certagentpb.WatchCertificatesRequest, stream certagentpb.CertAgent_WatchCertificatesServer) error {
	ids := make(map[string]bool, len(req.CertificateIds))
	for _, id := range req.CertificateIds {
		ids[id] = true
	}

	sub := s.st.Subscribe(stream.Context())
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event := parseEvent(msg.Payload)
			if len(ids) > 0 && !ids[event.CertificateId] {
				continue
			}
			if err := stream.Send(event); err != nil {
				return err
			}
		}
	}
}

func recordToProto(record *core.CertificateRecord) *certagentpb.CertificateStatusResponse {
	return &certagentpb.CertificateStatusResponse{
		CertificateId: record.ID,
		CommonName:    record.CommonName,
		DnsNames:      record.DNSNames,
		IpAddresses:   record.IPAddresses,
		Status:        string(record.Status),
		IssuedAt:      record.IssuedAt,
		ExpiresAt:     record.ExpiresAt,
		Metadata:      record.Metadata,
	}
}

// parseEvent splits a "<event>:<data>" payload published by store.Publish
// back into a CertificateEvent. The data half starts with the certificate
// id, optionally followed by ":<reason>" or ":<error>"; CertificateId is
// that leading id. health_check and cleanup events carry counts rather
// than an id, so their CertificateId is empty. In every case the raw data
// is preserved in Detail so no information is lost to the split.
func parseEvent(payload string) *certagentpb.CertificateEvent {
	event, data := payload, ""
	for i := 0; i < len(payload); i++ {
		if payload[i] == ':' {
			event, data = payload[:i], payload[i+1:]
			break
		}
	}
	id, _, _ := strings.Cut(data, ":")
	if event == "health_check" || event == "cleanup" {
		id = ""
	}
	return &certagentpb.CertificateEvent{
		CertificateId: id,
		EventType:     event,
		Timestamp:     time.Now().Unix(),
		Detail:        data,
	}
}

func toStatus(err error) error {
	ae, ok := err.(*agenterrors.AgentError)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	switch ae.Kind {
	case agenterrors.NotFound:
		return status.Error(codes.NotFound, ae.Detail)
	case agenterrors.InvalidRequest:
		return status.Error(codes.InvalidArgument, ae.Detail)
	default:
		// StatusConflict, Store, Serialization, Crypto and Io are all
		// specified as "surfaced as internal"; only NotFound and
		// InvalidRequest get their own gRPC status code.
		return status.Error(codes.Internal, ae.Detail)
	}
}

// Package certagentpb defines the wire messages and gRPC service surface
// for the certificate agent. There is no protoc step in this build: the
// schema below is the source of truth, hand-written in the shape
// protoc-gen-go would have produced, and the wire encoding is JSON rather
// than the protobuf binary format (see codec.go). This is a deliberate
// simplification of the transport's schema layer, which callers only ever
// see through this package's Go types and the CertAgentClient/
// CertAgentServer interfaces; nothing outside this package depends on how
// bytes are put on the wire.
package certagentpb

// IssueCertificateRequest asks the agent to mint a new leaf certificate.
type IssueCertificateRequest struct {
	CommonName   string            `json:"common_name"`
	DnsNames     []string          `json:"dns_names,omitempty"`
	IpAddresses  []string          `json:"ip_addresses,omitempty"`
	ValidityDays int32             `json:"validity_days,omitempty"`
	Organization string            `json:"organization,omitempty"`
	Ou           string            `json:"organizational_unit,omitempty"`
	Country      string            `json:"country,omitempty"`
	State        string            `json:"state,omitempty"`
	Locality     string            `json:"locality,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// IssueCertificateResponse carries the newly issued certificate, its
// private key and the CA's own certificate, all PEM-encoded.
type IssueCertificateResponse struct {
	CertificateId    string `json:"certificate_id"`
	CertificatePem   string `json:"certificate_pem"`
	PrivateKeyPem    string `json:"private_key_pem"`
	CaCertificatePem string `json:"ca_certificate_pem"`
	ExpiresAt        int64  `json:"expires_at"`
	Status           string `json:"status"`
}

// RenewCertificateRequest asks the agent to reissue an existing
// certificate under a fresh key and serial. ValidityDays of 0 uses the
// server's configured default.
type RenewCertificateRequest struct {
	CertificateId string `json:"certificate_id"`
	ValidityDays  int32  `json:"validity_days,omitempty"`
}

// RenewCertificateResponse mirrors IssueCertificateResponse; the returned
// certificate_id is new and distinct from the one renewed.
type RenewCertificateResponse struct {
	CertificateId    string `json:"certificate_id"`
	CertificatePem   string `json:"certificate_pem"`
	PrivateKeyPem    string `json:"private_key_pem"`
	CaCertificatePem string `json:"ca_certificate_pem"`
	ExpiresAt        int64  `json:"expires_at"`
	Status           string `json:"status"`
}

// RevokeCertificateRequest asks the agent to mark a certificate revoked.
// Reason is optional free-text recorded in the cert_events payload; an
// empty reason publishes a bare "revoked:<id>" event.
type RevokeCertificateRequest struct {
	CertificateId string `json:"certificate_id"`
	Reason        string `json:"reason,omitempty"`
}

// RevokeCertificateResponse never carries a transport-level error for a
// failed revoke; success is false and Message explains why. Only
// transport-level failures (e.g. the agent being unreachable) surface as a
// gRPC status error.
type RevokeCertificateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// GetCertificateStatusRequest looks up a single certificate's record.
type GetCertificateStatusRequest struct {
	CertificateId string `json:"certificate_id"`
}

// CertificateStatusResponse is the full record for one certificate.
type CertificateStatusResponse struct {
	CertificateId string            `json:"certificate_id"`
	CommonName    string            `json:"common_name"`
	DnsNames      []string          `json:"dns_names,omitempty"`
	IpAddresses   []string          `json:"ip_addresses,omitempty"`
	Status        string            `json:"status"`
	IssuedAt      int64             `json:"issued_at"`
	ExpiresAt     int64             `json:"expires_at"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ListCertificatesRequest optionally filters the inventory to one status.
// PageSize and PageToken are reserved for future pagination; v1 ignores
// them and always returns the full filtered inventory in one response.
type ListCertificatesRequest struct {
	StatusFilter string `json:"status_filter,omitempty"`
	PageSize     int32  `json:"page_size,omitempty"`
	PageToken    string `json:"page_token,omitempty"`
}

// ListCertificatesResponse is the filtered inventory. NextPageToken is
// always empty in v1; pagination is reserved but not implemented.
type ListCertificatesResponse struct {
	Certificates  []*CertificateStatusResponse `json:"certificates"`
	NextPageToken string                       `json:"next_page_token,omitempty"`
}

// WatchCertificatesRequest opens a stream of lifecycle events. When
// CertificateIds is non-empty, only events for those ids are delivered.
// CheckIntervalSeconds is accepted for contract compatibility but unused:
// this implementation pushes events as they are published to cert_events
// rather than polling on its own ticker (see DESIGN.md's Open Question on
// WatchCertificates delivery).
type WatchCertificatesRequest struct {
	CertificateIds       []string `json:"certificate_ids,omitempty"`
	CheckIntervalSeconds int32    `json:"check_interval_seconds,omitempty"`
}

// CertificateEvent is one message on a WatchCertificates stream.
type CertificateEvent struct {
	CertificateId string `json:"certificate_id"`
	EventType     string `json:"event_type"`
	Timestamp     int64  `json:"timestamp"`
	Detail        string `json:"detail,omitempty"`
}

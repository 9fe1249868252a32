package certagentpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const serviceName = "certagent.CertAgent"

// CertAgentClient is the client API for the CertAgent service.
type CertAgentClient interface {
	IssueCertificate(ctx context.Context, in *IssueCertificateRequest, opts ...grpc.CallOption) (*IssueCertificateResponse, error)
	RenewCertificate(ctx context.Context, in *RenewCertificateRequest, opts ...grpc.CallOption) (*RenewCertificateResponse, error)
	RevokeCertificate(ctx context.Context, in *RevokeCertificateRequest, opts ...grpc.CallOption) (*RevokeCertificateResponse, error)
	GetCertificateStatus(ctx context.Context, in *GetCertificateStatusRequest, opts ...grpc.CallOption) (*CertificateStatusResponse, error)
	ListCertificates(ctx context.Context, in *ListCertificatesRequest, opts ...grpc.CallOption) (*ListCertificatesResponse, error)
	WatchCertificates(ctx context.Context, in *WatchCertificatesRequest, opts ...grpc.CallOption) (CertAgent_WatchCertificatesClient, error)
}

type certAgentClient struct {
	cc grpc.ClientConnInterface
}

// NewCertAgentClient builds a CertAgentClient over an established
// connection.
func NewCertAgentClient(cc grpc.ClientConnInterface) CertAgentClient {
	return &certAgentClient{cc}
}

func (c *certAgentClient) IssueCertificate(ctx context.Context, in *IssueCertificateRequest, opts ...grpc.CallOption) (*IssueCertificateResponse, error) {
	out := new(IssueCertificateResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/IssueCertificate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *certAgentClient) RenewCertificate(ctx context.Context, in *RenewCertificateRequest, opts ...grpc.CallOption) (*RenewCertificateResponse, error) {
	out := new(RenewCertificateResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/RenewCertificate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *certAgentClient) RevokeCertificate(ctx context.Context, in *RevokeCertificateRequest, opts ...grpc.CallOption) (*RevokeCertificateResponse, error) {
	out := new(RevokeCertificateResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/RevokeCertificate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *certAgentClient) GetCertificateStatus(ctx context.Context, in *GetCertificateStatusRequest, opts ...grpc.CallOption) (*CertificateStatusResponse, error) {
	out := new(CertificateStatusResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetCertificateStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *certAgentClient) ListCertificates(ctx context.Context, in *ListCertificatesRequest, opts ...grpc.CallOption) (*ListCertificatesResponse, error) {
	out := new(ListCertificatesResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ListCertificates", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *certAgentClient) WatchCertificates(ctx context.Context, in *WatchCertificatesRequest, opts ...grpc.CallOption) (CertAgent_WatchCertificatesClient, error) {
	stream, err := c.cc.NewStream(ctx, &_CertAgent_serviceDesc.Streams[0], "/"+serviceName+"/WatchCertificates", opts...)
	if err != nil {
		return nil, err
	}
	x := &certAgentWatchCertificatesClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// CertAgent_WatchCertificatesClient is the client-side handle for the
// WatchCertificates server stream.
type CertAgent_WatchCertificatesClient interface {
	Recv() (*CertificateEvent, error)
	grpc.ClientStream
}

type certAgentWatchCertificatesClient struct {
	grpc.ClientStream
}

func (x *certAgentWatchCertificatesClient) Recv() (*CertificateEvent, error) {
	m := new(CertificateEvent)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CertAgentServer is the server API for the CertAgent service.
type CertAgentServer interface {
	IssueCertificate(context.Context, *IssueCertificateRequest) (*IssueCertificateResponse, error)
	RenewCertificate(context.Context, *RenewCertificateRequest) (*RenewCertificateResponse, error)
	RevokeCertificate(context.Context, *RevokeCertificateRequest) (*RevokeCertificateResponse, error)
	GetCertificateStatus(context.Context, *GetCertificateStatusRequest) (*CertificateStatusResponse, error)
	ListCertificates(context.Context, *ListCertificatesRequest) (*ListCertificatesResponse, error)
	WatchCertificates(*WatchCertificatesRequest, CertAgent_WatchCertificatesServer) error
}

// UnimplementedCertAgentServer embeds into a real implementation to satisfy
// CertAgentServer for methods not yet overridden, and to guarantee forward
// compatibility if the service gains methods.
type UnimplementedCertAgentServer struct{}

func (UnimplementedCertAgentServer) IssueCertificate(context.Context, *IssueCertificateRequest) (*IssueCertificateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method IssueCertificate not implemented")
}

func (UnimplementedCertAgentServer) RenewCertificate(context.Context, *RenewCertificateRequest) (*RenewCertificateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RenewCertificate not implemented")
}

func (UnimplementedCertAgentServer) RevokeCertificate(context.Context, *RevokeCertificateRequest) (*RevokeCertificateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RevokeCertificate not implemented")
}

func (UnimplementedCertAgentServer) GetCertificateStatus(context.Context, *GetCertificateStatusRequest) (*CertificateStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCertificateStatus not implemented")
}

func (UnimplementedCertAgentServer) ListCertificates(context.Context, *ListCertificatesRequest) (*ListCertificatesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListCertificates not implemented")
}

func (UnimplementedCertAgentServer) WatchCertificates(*WatchCertificatesRequest, CertAgent_WatchCertificatesServer) error {
	return status.Error(codes.Unimplemented, "method WatchCertificates not implemented")
}

// RegisterCertAgentServer attaches srv to s under the CertAgent service
// name.
func RegisterCertAgentServer(s grpc.ServiceRegistrar, srv CertAgentServer) {
	s.RegisterService(&_CertAgent_serviceDesc, srv)
}

func _CertAgent_IssueCertificate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(IssueCertificateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CertAgentServer).IssueCertificate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/IssueCertificate"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CertAgentServer).IssueCertificate(ctx, req.(*IssueCertificateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _CertAgent_RenewCertificate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RenewCertificateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CertAgentServer).RenewCertificate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/RenewCertificate"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CertAgentServer).RenewCertificate(ctx, req.(*RenewCertificateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _CertAgent_RevokeCertificate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RevokeCertificateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CertAgentServer).RevokeCertificate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/RevokeCertificate"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CertAgentServer).RevokeCertificate(ctx, req.(*RevokeCertificateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _CertAgent_GetCertificateStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetCertificateStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CertAgentServer).GetCertificateStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetCertificateStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CertAgentServer).GetCertificateStatus(ctx, req.(*GetCertificateStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _CertAgent_ListCertificates_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListCertificatesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CertAgentServer).ListCertificates(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListCertificates"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CertAgentServer).ListCertificates(ctx, req.(*ListCertificatesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _CertAgent_WatchCertificates_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(WatchCertificatesRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(CertAgentServer).WatchCertificates(m, &certAgentWatchCertificatesServer{stream})
}

// CertAgent_WatchCertificatesServer is the server-side handle for the
// WatchCertificates server stream.
type CertAgent_WatchCertificatesServer interface {
	Send(*CertificateEvent) error
	grpc.ServerStream
}

type certAgentWatchCertificatesServer struct {
	grpc.ServerStream
}

func (x *certAgentWatchCertificatesServer) Send(m *CertificateEvent) error {
	return x.ServerStream.SendMsg(m)
}

var _CertAgent_serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CertAgentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IssueCertificate", Handler: _CertAgent_IssueCertificate_Handler},
		{MethodName: "RenewCertificate", Handler: _CertAgent_RenewCertificate_Handler},
		{MethodName: "RevokeCertificate", Handler: _CertAgent_RevokeCertificate_Handler},
		{MethodName: "GetCertificateStatus", Handler: _CertAgent_GetCertificateStatus_Handler},
		{MethodName: "ListCertificates", Handler: _CertAgent_ListCertificates_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchCertificates",
			Handler:       _CertAgent_WatchCertificates_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "certagent.proto",
}

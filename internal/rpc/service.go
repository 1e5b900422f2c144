// Package rpc defines the PromptSync gRPC service shared by the client and
// the server: wire messages, the JSON codec they travel with, the service
// descriptor and typed client and server stubs.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "promptkeeper.v1.PromptSync"

// FullMethod returns the gRPC method path of a PromptSync method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

const (
	MethodRegister         = "Register"
	MethodGetSalt          = "GetSalt"
	MethodLogin            = "Login"
	MethodRefreshToken     = "RefreshToken"
	MethodListActive       = "ListActive"
	MethodListUpdatedSince = "ListUpdatedSince"
	MethodUpsert           = "Upsert"
	MethodSoftDelete       = "SoftDelete"
	MethodCommitBatch      = "CommitBatch"
	MethodPurge            = "Purge"
	MethodWatch            = "Watch"
	MethodGetMembership    = "GetMembership"
	MethodSetMembership    = "SetMembership"
	MethodWatchMembership  = "WatchMembership"
	MethodExport           = "Export"
)

// PromptSyncServer is implemented by the remote authority.
type PromptSyncServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	ListActive(context.Context, *ListActiveRequest) (*ListPromptsResponse, error)
	ListUpdatedSince(context.Context, *ListUpdatedSinceRequest) (*ListPromptsResponse, error)
	Upsert(context.Context, *UpsertRequest) (*UpsertResponse, error)
	SoftDelete(context.Context, *SoftDeleteRequest) (*SoftDeleteResponse, error)
	CommitBatch(context.Context, *CommitBatchRequest) (*CommitBatchResponse, error)
	Purge(context.Context, *PurgeRequest) (*PurgeResponse, error)
	Watch(*WatchRequest, grpc.ServerStreamingServer[Change]) error
	GetMembership(context.Context, *GetMembershipRequest) (*MembershipResponse, error)
	SetMembership(context.Context, *SetMembershipRequest) (*MembershipResponse, error)
	WatchMembership(*WatchMembershipRequest, grpc.ServerStreamingServer[MembershipResponse]) error
	Export(context.Context, *ExportRequest) (*ExportResponse, error)
}

// UnimplementedPromptSyncServer answers every call with codes.Unimplemented.
// Embed it to implement a subset of the service.
type UnimplementedPromptSyncServer struct{}

func unimplemented(name string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", name)
}

func (UnimplementedPromptSyncServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, unimplemented(MethodRegister)
}
func (UnimplementedPromptSyncServer) GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error) {
	return nil, unimplemented(MethodGetSalt)
}
func (UnimplementedPromptSyncServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, unimplemented(MethodLogin)
}
func (UnimplementedPromptSyncServer) RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return nil, unimplemented(MethodRefreshToken)
}
func (UnimplementedPromptSyncServer) ListActive(context.Context, *ListActiveRequest) (*ListPromptsResponse, error) {
	return nil, unimplemented(MethodListActive)
}
func (UnimplementedPromptSyncServer) ListUpdatedSince(context.Context, *ListUpdatedSinceRequest) (*ListPromptsResponse, error) {
	return nil, unimplemented(MethodListUpdatedSince)
}
func (UnimplementedPromptSyncServer) Upsert(context.Context, *UpsertRequest) (*UpsertResponse, error) {
	return nil, unimplemented(MethodUpsert)
}
func (UnimplementedPromptSyncServer) SoftDelete(context.Context, *SoftDeleteRequest) (*SoftDeleteResponse, error) {
	return nil, unimplemented(MethodSoftDelete)
}
func (UnimplementedPromptSyncServer) CommitBatch(context.Context, *CommitBatchRequest) (*CommitBatchResponse, error) {
	return nil, unimplemented(MethodCommitBatch)
}
func (UnimplementedPromptSyncServer) Purge(context.Context, *PurgeRequest) (*PurgeResponse, error) {
	return nil, unimplemented(MethodPurge)
}
func (UnimplementedPromptSyncServer) Watch(*WatchRequest, grpc.ServerStreamingServer[Change]) error {
	return unimplemented(MethodWatch)
}
func (UnimplementedPromptSyncServer) GetMembership(context.Context, *GetMembershipRequest) (*MembershipResponse, error) {
	return nil, unimplemented(MethodGetMembership)
}
func (UnimplementedPromptSyncServer) SetMembership(context.Context, *SetMembershipRequest) (*MembershipResponse, error) {
	return nil, unimplemented(MethodSetMembership)
}
func (UnimplementedPromptSyncServer) WatchMembership(*WatchMembershipRequest, grpc.ServerStreamingServer[MembershipResponse]) error {
	return unimplemented(MethodWatchMembership)
}
func (UnimplementedPromptSyncServer) Export(context.Context, *ExportRequest) (*ExportResponse, error) {
	return nil, unimplemented(MethodExport)
}

// unaryMethod adapts a typed server method to a grpc.MethodDesc.
func unaryMethod[Req, Resp any](name string, call func(PromptSyncServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PromptSyncServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PromptSyncServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PromptSyncServer).Watch(in, &grpc.GenericServerStream[WatchRequest, Change]{ServerStream: stream})
}

func watchMembershipHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchMembershipRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PromptSyncServer).WatchMembership(in, &grpc.GenericServerStream[WatchMembershipRequest, MembershipResponse]{ServerStream: stream})
}

// ServiceDesc describes PromptSync for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PromptSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodRegister, PromptSyncServer.Register),
		unaryMethod(MethodGetSalt, PromptSyncServer.GetSalt),
		unaryMethod(MethodLogin, PromptSyncServer.Login),
		unaryMethod(MethodRefreshToken, PromptSyncServer.RefreshToken),
		unaryMethod(MethodListActive, PromptSyncServer.ListActive),
		unaryMethod(MethodListUpdatedSince, PromptSyncServer.ListUpdatedSince),
		unaryMethod(MethodUpsert, PromptSyncServer.Upsert),
		unaryMethod(MethodSoftDelete, PromptSyncServer.SoftDelete),
		unaryMethod(MethodCommitBatch, PromptSyncServer.CommitBatch),
		unaryMethod(MethodPurge, PromptSyncServer.Purge),
		unaryMethod(MethodGetMembership, PromptSyncServer.GetMembership),
		unaryMethod(MethodSetMembership, PromptSyncServer.SetMembership),
		unaryMethod(MethodExport, PromptSyncServer.Export),
	},
	Streams: []grpc.StreamDesc{
		{StreamName: MethodWatch, Handler: watchHandler, ServerStreams: true},
		{StreamName: MethodWatchMembership, Handler: watchMembershipHandler, ServerStreams: true},
	},
	Metadata: "promptkeeper/v1/promptsync",
}

func RegisterPromptSyncServer(s grpc.ServiceRegistrar, srv PromptSyncServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// PromptSyncClient is the typed client stub. Every call is sent with the
// JSON codec.
type PromptSyncClient struct {
	cc grpc.ClientConnInterface
}

func NewPromptSyncClient(cc grpc.ClientConnInterface) *PromptSyncClient {
	return &PromptSyncClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func serverStream[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, desc *grpc.StreamDesc, in *Req, opts []grpc.CallOption) (grpc.ServerStreamingClient[Resp], error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := cc.NewStream(ctx, desc, FullMethod(desc.StreamName), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Req, Resp]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *PromptSyncClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *PromptSyncClient) GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error) {
	return invoke[GetSaltResponse](ctx, c.cc, MethodGetSalt, in, opts)
}

func (c *PromptSyncClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *PromptSyncClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error) {
	return invoke[RefreshTokenResponse](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *PromptSyncClient) ListActive(ctx context.Context, in *ListActiveRequest, opts ...grpc.CallOption) (*ListPromptsResponse, error) {
	return invoke[ListPromptsResponse](ctx, c.cc, MethodListActive, in, opts)
}

func (c *PromptSyncClient) ListUpdatedSince(ctx context.Context, in *ListUpdatedSinceRequest, opts ...grpc.CallOption) (*ListPromptsResponse, error) {
	return invoke[ListPromptsResponse](ctx, c.cc, MethodListUpdatedSince, in, opts)
}

func (c *PromptSyncClient) Upsert(ctx context.Context, in *UpsertRequest, opts ...grpc.CallOption) (*UpsertResponse, error) {
	return invoke[UpsertResponse](ctx, c.cc, MethodUpsert, in, opts)
}

func (c *PromptSyncClient) SoftDelete(ctx context.Context, in *SoftDeleteRequest, opts ...grpc.CallOption) (*SoftDeleteResponse, error) {
	return invoke[SoftDeleteResponse](ctx, c.cc, MethodSoftDelete, in, opts)
}

func (c *PromptSyncClient) CommitBatch(ctx context.Context, in *CommitBatchRequest, opts ...grpc.CallOption) (*CommitBatchResponse, error) {
	return invoke[CommitBatchResponse](ctx, c.cc, MethodCommitBatch, in, opts)
}

func (c *PromptSyncClient) Purge(ctx context.Context, in *PurgeRequest, opts ...grpc.CallOption) (*PurgeResponse, error) {
	return invoke[PurgeResponse](ctx, c.cc, MethodPurge, in, opts)
}

func (c *PromptSyncClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Change], error) {
	return serverStream[WatchRequest, Change](ctx, c.cc, &ServiceDesc.Streams[0], in, opts)
}

func (c *PromptSyncClient) GetMembership(ctx context.Context, in *GetMembershipRequest, opts ...grpc.CallOption) (*MembershipResponse, error) {
	return invoke[MembershipResponse](ctx, c.cc, MethodGetMembership, in, opts)
}

func (c *PromptSyncClient) SetMembership(ctx context.Context, in *SetMembershipRequest, opts ...grpc.CallOption) (*MembershipResponse, error) {
	return invoke[MembershipResponse](ctx, c.cc, MethodSetMembership, in, opts)
}

func (c *PromptSyncClient) WatchMembership(ctx context.Context, in *WatchMembershipRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[MembershipResponse], error) {
	return serverStream[WatchMembershipRequest, MembershipResponse](ctx, c.cc, &ServiceDesc.Streams[1], in, opts)
}

func (c *PromptSyncClient) Export(ctx context.Context, in *ExportRequest, opts ...grpc.CallOption) (*ExportResponse, error) {
	return invoke[ExportResponse](ctx, c.cc, MethodExport, in, opts)
}

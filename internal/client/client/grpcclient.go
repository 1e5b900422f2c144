package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/logging"
	"github.com/dmitrijs2005/promptkeeper/internal/rpc"
)

// syncClient is the generated-style stub the GRPCClient drives.
type syncClient interface {
	Register(ctx context.Context, in *rpc.RegisterRequest, opts ...grpc.CallOption) (*rpc.RegisterResponse, error)
	GetSalt(ctx context.Context, in *rpc.GetSaltRequest, opts ...grpc.CallOption) (*rpc.GetSaltResponse, error)
	Login(ctx context.Context, in *rpc.LoginRequest, opts ...grpc.CallOption) (*rpc.LoginResponse, error)
	RefreshToken(ctx context.Context, in *rpc.RefreshTokenRequest, opts ...grpc.CallOption) (*rpc.RefreshTokenResponse, error)
	ListActive(ctx context.Context, in *rpc.ListActiveRequest, opts ...grpc.CallOption) (*rpc.ListPromptsResponse, error)
	ListUpdatedSince(ctx context.Context, in *rpc.ListUpdatedSinceRequest, opts ...grpc.CallOption) (*rpc.ListPromptsResponse, error)
	Upsert(ctx context.Context, in *rpc.UpsertRequest, opts ...grpc.CallOption) (*rpc.UpsertResponse, error)
	SoftDelete(ctx context.Context, in *rpc.SoftDeleteRequest, opts ...grpc.CallOption) (*rpc.SoftDeleteResponse, error)
	CommitBatch(ctx context.Context, in *rpc.CommitBatchRequest, opts ...grpc.CallOption) (*rpc.CommitBatchResponse, error)
	Purge(ctx context.Context, in *rpc.PurgeRequest, opts ...grpc.CallOption) (*rpc.PurgeResponse, error)
	Watch(ctx context.Context, in *rpc.WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[rpc.Change], error)
	GetMembership(ctx context.Context, in *rpc.GetMembershipRequest, opts ...grpc.CallOption) (*rpc.MembershipResponse, error)
	SetMembership(ctx context.Context, in *rpc.SetMembershipRequest, opts ...grpc.CallOption) (*rpc.MembershipResponse, error)
	WatchMembership(ctx context.Context, in *rpc.WatchMembershipRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[rpc.MembershipResponse], error)
	Export(ctx context.Context, in *rpc.ExportRequest, opts ...grpc.CallOption) (*rpc.ExportResponse, error)
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      syncClient
	health      healthpb.HealthClient
	logger      logging.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	// refreshMu makes concurrent callers share one refresh round-trip.
	refreshMu sync.Mutex
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	used := s.token()
	err := invoker(withAccessToken(ctx, used), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) || method == rpc.FullMethod(rpc.MethodRefreshToken) {
		return err
	}

	if rerr := s.refresh(ctx, used); rerr != nil {
		return err
	}

	// tokens refreshed, retry once with the new access token
	return invoker(withAccessToken(ctx, s.token()), method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, s.token()), desc, cc, method, opts...)
}

// refresh exchanges the refresh token unless another caller already
// replaced the access token that failed.
func (s *GRPCClient) refresh(ctx context.Context, used string) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	access, refresh := s.accessToken, s.refreshToken
	s.mu.Unlock()

	if access != used {
		return nil
	}
	if refresh == "" {
		return ErrUnauthorized
	}

	resp, err := s.client.RefreshToken(ctx, &rpc.RefreshTokenRequest{RefreshToken: refresh})
	if err != nil {
		return s.mapError(err)
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

func (s *GRPCClient) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	s.accessToken = access
	s.refreshToken = refresh
	s.mu.Unlock()
}

func NewGRPCClient(endpointURL string, logger logging.Logger, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, logger: logger.With("module", "grpc_client")}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithChainStreamInterceptor(s.streamAccessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
	}
	conn, err := grpc.NewClient(s.endpointURL, append(base, opts...)...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewPromptSyncClient(conn)
	s.health = healthpb.NewHealthClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Register(ctx context.Context, userName string, salt []byte, verifier []byte) error {
	req := &rpc.RegisterRequest{Username: userName, Salt: salt, Verifier: verifier}

	if _, err := s.client.Register(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	resp, err := s.client.GetSalt(ctx, &rpc.GetSaltRequest{Username: userName})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Salt, nil
}

func (s *GRPCClient) Login(ctx context.Context, userName string, verifier []byte) (string, error) {
	resp, err := s.client.Login(ctx, &rpc.LoginRequest{Username: userName, Verifier: verifier})
	if err != nil {
		return "", s.mapError(err)
	}

	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return resp.UserID, nil
}

// Logout forgets the session tokens.
func (s *GRPCClient) Logout() {
	s.setTokens("", "")
}

// Ping checks the standard gRPC health service of the PromptSync server.
func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		return s.mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) ListActive(ctx context.Context) ([]models.Prompt, error) {
	resp, err := s.client.ListActive(ctx, &rpc.ListActiveRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return fromWireList(resp.Prompts), nil
}

func (s *GRPCClient) ListUpdatedSince(ctx context.Context, since int64) ([]models.Prompt, error) {
	resp, err := s.client.ListUpdatedSince(ctx, &rpc.ListUpdatedSinceRequest{Since: since})
	if err != nil {
		return nil, s.mapError(err)
	}
	return fromWireList(resp.Prompts), nil
}

func (s *GRPCClient) Upsert(ctx context.Context, p models.Prompt) error {
	if _, err := s.client.Upsert(ctx, &rpc.UpsertRequest{Prompt: toWire(p)}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) SoftDelete(ctx context.Context, id string, updatedAt int64) error {
	if _, err := s.client.SoftDelete(ctx, &rpc.SoftDeleteRequest{ID: id, UpdatedAt: updatedAt}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) CommitBatch(ctx context.Context, ops []models.BatchOp) error {
	if _, err := s.client.CommitBatch(ctx, &rpc.CommitBatchRequest{Ops: batchToWire(ops)}); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Purge removes a prompt from the server for good.
func (s *GRPCClient) Purge(ctx context.Context, id string) error {
	if _, err := s.client.Purge(ctx, &rpc.PurgeRequest{ID: id}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) GetMembership(ctx context.Context) (models.Tier, error) {
	resp, err := s.client.GetMembership(ctx, &rpc.GetMembershipRequest{})
	if err != nil {
		return "", s.mapError(err)
	}
	return models.ParseTier(resp.Tier), nil
}

func (s *GRPCClient) SetMembership(ctx context.Context, tier models.Tier) (models.Tier, error) {
	resp, err := s.client.SetMembership(ctx, &rpc.SetMembershipRequest{Tier: string(tier)})
	if err != nil {
		return "", s.mapError(err)
	}
	return models.ParseTier(resp.Tier), nil
}

func (s *GRPCClient) Export(ctx context.Context) (string, int, error) {
	resp, err := s.client.Export(ctx, &rpc.ExportRequest{})
	if err != nil {
		return "", 0, s.mapError(err)
	}
	return resp.URL, resp.Count, nil
}

// Watch opens the remote change feed. The returned channel is closed when
// the stream ends; callers reconnect by calling Watch again.
func (s *GRPCClient) Watch(ctx context.Context) (<-chan models.Change, error) {
	open := func(ctx context.Context) (grpc.ServerStreamingClient[rpc.Change], error) {
		return s.client.Watch(ctx, &rpc.WatchRequest{})
	}
	return follow(ctx, s, "change", open, changeFromWire)
}

// WatchMembership streams the account tier, starting with the current one.
func (s *GRPCClient) WatchMembership(ctx context.Context) (<-chan models.Tier, error) {
	open := func(ctx context.Context) (grpc.ServerStreamingClient[rpc.MembershipResponse], error) {
		return s.client.WatchMembership(ctx, &rpc.WatchMembershipRequest{})
	}
	conv := func(m *rpc.MembershipResponse) models.Tier { return models.ParseTier(m.Tier) }
	return follow(ctx, s, "membership", open, conv)
}

// follow pumps a server stream into a channel. An expired access token is
// refreshed once and the stream reopened.
func follow[M, T any](
	ctx context.Context,
	s *GRPCClient,
	name string,
	open func(context.Context) (grpc.ServerStreamingClient[M], error),
	conv func(*M) T,
) (<-chan T, error) {
	used := s.token()
	stream, err := open(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}

	out := make(chan T)
	go func() {
		defer close(out)
		refreshed := false
		for {
			msg, err := stream.Recv()
			if err != nil {
				if isTokenExpired(err) && !refreshed && s.refresh(ctx, used) == nil {
					refreshed = true
					used = s.token()
					next, oerr := open(ctx)
					if oerr == nil {
						stream = next
						continue
					}
					err = oerr
				}
				if ctx.Err() == nil && !errors.Is(err, io.EOF) {
					s.logger.Debug(ctx, name+" stream closed", "error", err)
				}
				return
			}
			refreshed = false

			select {
			case out <- conv(msg):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorInvalidInput, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

var _ Client = (*GRPCClient)(nil)

// Package grpc serves the PromptSync service: access-token authentication,
// mapping between wire messages and the server services, change streams
// and the standard health service.
package grpc

import (
	"context"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/promptkeeper/internal/logging"
	"github.com/dmitrijs2005/promptkeeper/internal/rpc"
	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
	"github.com/dmitrijs2005/promptkeeper/internal/server/services"
)

// gracePeriod bounds how long shutdown waits for in-flight calls.
const gracePeriod = 5 * time.Second

type UserService interface {
	Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(token string) (string, error)
}

type PromptService interface {
	ListActive(ctx context.Context, userID string) ([]*models.Prompt, error)
	ListUpdatedSince(ctx context.Context, userID string, since int64) ([]*models.Prompt, error)
	Upsert(ctx context.Context, userID string, p *models.Prompt) (bool, error)
	SoftDelete(ctx context.Context, userID, id string, updatedAt int64) error
	CommitBatch(ctx context.Context, userID string, ops []services.BatchOp) (int, error)
	Purge(ctx context.Context, userID, id string) error
	Watch(userID string) (<-chan models.Change, func())
}

type MembershipService interface {
	Get(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID string, tier string) (string, error)
	Watch(ctx context.Context, userID string) (<-chan string, func(), error)
}

type ExportService interface {
	Export(ctx context.Context, userID string) (*services.ExportResult, error)
}

type GRPCServer struct {
	rpc.UnimplementedPromptSyncServer
	address    string
	users      UserService
	prompts    PromptService
	membership MembershipService
	exports    ExportService
	logger     logging.Logger
	health     *health.Server

	stopOnce sync.Once
	stopping chan struct{}
}

func NewGRPCServer(addr string, l logging.Logger, us UserService, ps PromptService, ms MembershipService, es ExportService) *GRPCServer {
	return &GRPCServer{
		address:    addr,
		logger:     l.With("module", "grpc_server"),
		users:      us,
		prompts:    ps,
		membership: ms,
		exports:    es,
		health:     health.NewServer(),
		stopping:   make(chan struct{}),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	rpc.RegisterPromptSyncServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then drains in-flight calls.
// Open change streams are ended so the drain can finish.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		s.stopOnce.Do(func() { close(s.stopping) })

		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(gracePeriod):
			srv.Stop()
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

package grpc

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/logging"
	"github.com/dmitrijs2005/promptkeeper/internal/rpc"
	"github.com/dmitrijs2005/promptkeeper/internal/server/broker"
	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
	"github.com/dmitrijs2005/promptkeeper/internal/server/services"
)

type fakeUsers struct {
	regErr   error
	saltErr  error
	loginErr error
	refresh  *services.TokenPair
	refErr   error
}

func (f *fakeUsers) Register(_ context.Context, username string, _, _ []byte) (*models.User, error) {
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &models.User{ID: "u-" + username, UserName: username}, nil
}

func (f *fakeUsers) GetSalt(context.Context, string) ([]byte, error) {
	return []byte("salt"), f.saltErr
}

func (f *fakeUsers) Login(_ context.Context, username string, _ []byte) (*services.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.TokenPair{UserID: "u1", AccessToken: "good", RefreshToken: "r1"}, nil
}

func (f *fakeUsers) RefreshToken(context.Context, string) (*services.TokenPair, error) {
	return f.refresh, f.refErr
}

func (f *fakeUsers) Authenticate(token string) (string, error) {
	switch token {
	case "good":
		return "u1", nil
	case "expired":
		return "", common.ErrTokenExpired
	default:
		return "", common.ErrInvalidToken
	}
}

type fakePrompts struct {
	mu      sync.Mutex
	err     error
	lastOps []services.BatchOp
	last    *models.Prompt
	userID  string
	items   []*models.Prompt
	changes *broker.Broker[models.Change]
}

func (f *fakePrompts) record(userID string) {
	f.mu.Lock()
	f.userID = userID
	f.mu.Unlock()
}

func (f *fakePrompts) ListActive(_ context.Context, userID string) ([]*models.Prompt, error) {
	f.record(userID)
	return f.items, f.err
}

func (f *fakePrompts) ListUpdatedSince(_ context.Context, userID string, _ int64) ([]*models.Prompt, error) {
	f.record(userID)
	return f.items, f.err
}

func (f *fakePrompts) Upsert(_ context.Context, userID string, p *models.Prompt) (bool, error) {
	f.record(userID)
	f.last = p
	return f.err == nil, f.err
}

func (f *fakePrompts) SoftDelete(_ context.Context, userID, _ string, _ int64) error {
	f.record(userID)
	return f.err
}

func (f *fakePrompts) CommitBatch(_ context.Context, userID string, ops []services.BatchOp) (int, error) {
	f.record(userID)
	f.lastOps = ops
	return len(ops), f.err
}

func (f *fakePrompts) Purge(_ context.Context, userID, _ string) error {
	f.record(userID)
	return f.err
}

func (f *fakePrompts) Watch(userID string) (<-chan models.Change, func()) {
	return f.changes.Subscribe(userID)
}

type fakeMembership struct {
	tier  string
	err   error
	tiers *broker.Broker[string]
}

func (f *fakeMembership) Get(context.Context, string) (string, error) { return f.tier, f.err }

func (f *fakeMembership) Set(_ context.Context, userID, tier string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.tier = tier
	f.tiers.Publish(userID, tier)
	return tier, nil
}

func (f *fakeMembership) Watch(_ context.Context, userID string) (<-chan string, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	ch, cancel := f.tiers.Subscribe(userID)
	return ch, cancel, nil
}

type fakeExports struct {
	res *services.ExportResult
	err error
}

func (f *fakeExports) Export(context.Context, string) (*services.ExportResult, error) {
	return f.res, f.err
}

type harness struct {
	server     *GRPCServer
	users      *fakeUsers
	prompts    *fakePrompts
	membership *fakeMembership
	exports    *fakeExports
	client     *rpc.PromptSyncClient
	health     healthpb.HealthClient
	stop       context.CancelFunc
	done       chan error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		users:      &fakeUsers{},
		prompts:    &fakePrompts{changes: broker.New[models.Change](8)},
		membership: &fakeMembership{tier: models.TierFree, tiers: broker.New[string](8)},
		exports:    &fakeExports{},
		done:       make(chan error, 1),
	}
	h.server = NewGRPCServer("bufconn", logging.NewNopLogger(), h.users, h.prompts, h.membership, h.exports)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	h.stop = cancel
	go func() { h.done <- h.server.Serve(ctx, lis) }()
	t.Cleanup(cancel)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	h.client = rpc.NewPromptSyncClient(conn)
	h.health = healthpb.NewHealthClient(conn)
	return h
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)
}

func incoming(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, token))
}

package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/rpc"
)

// toStatus maps service errors onto gRPC status codes. Unclassified errors
// are logged and reported as internal without details.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrorInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error(ctx, op+" failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) userID(ctx context.Context) (string, error) {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return id, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {
	s.logger.Info(ctx, "Registration request", "username", req.Username)

	user, err := s.users.Register(ctx, req.Username, req.Salt, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, "register", err)
	}

	s.logger.Info(ctx, "Registered", "username", user.UserName, "user_id", user.ID)
	return &rpc.RegisterResponse{UserID: user.ID}, nil
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *rpc.GetSaltRequest) (*rpc.GetSaltResponse, error) {
	salt, err := s.users.GetSalt(ctx, req.Username)
	if err != nil {
		return nil, s.toStatus(ctx, "get salt", err)
	}
	return &rpc.GetSaltResponse{Salt: salt}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.LoginResponse, error) {
	tokens, err := s.users.Login(ctx, req.Username, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, "login", err)
	}
	return &rpc.LoginResponse{UserID: tokens.UserID, AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpc.RefreshTokenRequest) (*rpc.RefreshTokenResponse, error) {
	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, "refresh token", err)
	}
	return &rpc.RefreshTokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) ListActive(ctx context.Context, _ *rpc.ListActiveRequest) (*rpc.ListPromptsResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.prompts.ListActive(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, "list active", err)
	}
	return &rpc.ListPromptsResponse{Prompts: toWireList(items)}, nil
}

func (s *GRPCServer) ListUpdatedSince(ctx context.Context, req *rpc.ListUpdatedSinceRequest) (*rpc.ListPromptsResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.prompts.ListUpdatedSince(ctx, userID, req.Since)
	if err != nil {
		return nil, s.toStatus(ctx, "list updated", err)
	}
	return &rpc.ListPromptsResponse{Prompts: toWireList(items)}, nil
}

func (s *GRPCServer) Upsert(ctx context.Context, req *rpc.UpsertRequest) (*rpc.UpsertResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := s.prompts.Upsert(ctx, userID, fromWire(req.Prompt))
	if err != nil {
		return nil, s.toStatus(ctx, "upsert", err)
	}
	return &rpc.UpsertResponse{Applied: applied}, nil
}

func (s *GRPCServer) SoftDelete(ctx context.Context, req *rpc.SoftDeleteRequest) (*rpc.SoftDeleteResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.prompts.SoftDelete(ctx, userID, req.ID, req.UpdatedAt); err != nil {
		return nil, s.toStatus(ctx, "soft delete", err)
	}
	return &rpc.SoftDeleteResponse{}, nil
}

func (s *GRPCServer) CommitBatch(ctx context.Context, req *rpc.CommitBatchRequest) (*rpc.CommitBatchResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := s.prompts.CommitBatch(ctx, userID, opsFromWire(req.Ops))
	if err != nil {
		return nil, s.toStatus(ctx, "commit batch", err)
	}
	s.logger.Debug(ctx, "batch committed", "user_id", userID, "ops", len(req.Ops), "applied", applied)
	return &rpc.CommitBatchResponse{Applied: applied}, nil
}

func (s *GRPCServer) Purge(ctx context.Context, req *rpc.PurgeRequest) (*rpc.PurgeResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.prompts.Purge(ctx, userID, req.ID); err != nil {
		return nil, s.toStatus(ctx, "purge", err)
	}
	return &rpc.PurgeResponse{}, nil
}

// Watch streams committed changes until the client leaves. A subscriber
// that lags behind is disconnected with Unavailable and is expected to
// reconnect and catch up incrementally.
func (s *GRPCServer) Watch(_ *rpc.WatchRequest, stream grpc.ServerStreamingServer[rpc.Change]) error {
	ctx := stream.Context()
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}

	changes, cancel := s.prompts.Watch(userID)
	defer cancel()

	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return status.Error(codes.Unavailable, "change feed overflow, resubscribe")
			}
			if err := stream.Send(changeToWire(c)); err != nil {
				return err
			}
		case <-s.stopping:
			return status.Error(codes.Unavailable, "server is shutting down")
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *GRPCServer) GetMembership(ctx context.Context, _ *rpc.GetMembershipRequest) (*rpc.MembershipResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	tier, err := s.membership.Get(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, "get membership", err)
	}
	return &rpc.MembershipResponse{Tier: tier}, nil
}

func (s *GRPCServer) SetMembership(ctx context.Context, req *rpc.SetMembershipRequest) (*rpc.MembershipResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	tier, err := s.membership.Set(ctx, userID, req.Tier)
	if err != nil {
		return nil, s.toStatus(ctx, "set membership", err)
	}
	s.logger.Info(ctx, "Membership changed", "user_id", userID, "tier", tier)
	return &rpc.MembershipResponse{Tier: tier}, nil
}

func (s *GRPCServer) WatchMembership(_ *rpc.WatchMembershipRequest, stream grpc.ServerStreamingServer[rpc.MembershipResponse]) error {
	ctx := stream.Context()
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}

	tiers, cancel, err := s.membership.Watch(ctx, userID)
	if err != nil {
		return s.toStatus(ctx, "watch membership", err)
	}
	defer cancel()

	for {
		select {
		case tier, ok := <-tiers:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return status.Error(codes.Unavailable, "membership feed overflow, resubscribe")
			}
			if err := stream.Send(&rpc.MembershipResponse{Tier: tier}); err != nil {
				return err
			}
		case <-s.stopping:
			return status.Error(codes.Unavailable, "server is shutting down")
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *GRPCServer) Export(ctx context.Context, _ *rpc.ExportRequest) (*rpc.ExportResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.exports.Export(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, "export", err)
	}
	s.logger.Info(ctx, "Export created", "user_id", userID, "key", res.Key, "count", res.Count)
	return &rpc.ExportResponse{Key: res.Key, URL: res.URL, Count: res.Count}, nil
}

package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/server/broker"
	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
	"github.com/dmitrijs2005/promptkeeper/internal/server/repositories/repomanager"
)

// MembershipService reads and changes the account tier and announces
// changes to the account's membership watchers.
type MembershipService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tiers       *broker.Broker[string]
}

func NewMembershipService(db *sql.DB, m repomanager.RepositoryManager, tiers *broker.Broker[string]) *MembershipService {
	return &MembershipService{db: db, repomanager: m, tiers: tiers}
}

func (s *MembershipService) Get(ctx context.Context, userID string) (string, error) {
	tier, err := s.repomanager.Users(s.db).GetTier(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("error reading tier: %w", err)
	}
	return tier, nil
}

func (s *MembershipService) Set(ctx context.Context, userID string, tier string) (string, error) {
	if !models.ValidTier(tier) {
		return "", fmt.Errorf("%w: unknown tier %q", common.ErrorInvalidInput, tier)
	}
	if err := s.repomanager.Users(s.db).SetTier(ctx, userID, tier); err != nil {
		return "", fmt.Errorf("error updating tier: %w", err)
	}
	s.tiers.Publish(userID, tier)
	return tier, nil
}

// Watch subscribes to tier changes of userID. The current tier is sent
// first so a new watcher does not need a separate read.
func (s *MembershipService) Watch(ctx context.Context, userID string) (<-chan string, func(), error) {
	ch, cancel := s.tiers.Subscribe(userID)
	tier, err := s.Get(ctx, userID)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	out := make(chan string, 1)
	out <- tier
	go func() {
		defer close(out)
		for {
			select {
			case t, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}

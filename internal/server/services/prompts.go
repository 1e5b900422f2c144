package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/dbx"
	"github.com/dmitrijs2005/promptkeeper/internal/logging"
	"github.com/dmitrijs2005/promptkeeper/internal/server/broker"
	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
	"github.com/dmitrijs2005/promptkeeper/internal/server/repositories/repomanager"
)

// MaxCommitOps bounds the number of writes accepted in one CommitBatch.
const MaxCommitOps = 500

const (
	OpUpsert = "upsert"
	OpDelete = "delete"
	OpLock   = "lock"
)

// BatchOp is one write of an atomic commit.
type BatchOp struct {
	Kind      string
	ID        string
	Prompt    *models.Prompt
	Locked    bool
	UpdatedAt int64
}

// PromptService applies last-write-wins writes to an account's prompts and
// publishes every applied write to the account's change feed once it is
// committed.
type PromptService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	changes     *broker.Broker[models.Change]
	logger      logging.Logger
}

func NewPromptService(db *sql.DB, m repomanager.RepositoryManager, changes *broker.Broker[models.Change], logger logging.Logger) *PromptService {
	return &PromptService{db: db, repomanager: m, changes: changes, logger: logger.With("module", "prompts")}
}

func (s *PromptService) ListActive(ctx context.Context, userID string) ([]*models.Prompt, error) {
	items, err := s.repomanager.Prompts(s.db).ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing prompts: %w", err)
	}
	return items, nil
}

func (s *PromptService) ListUpdatedSince(ctx context.Context, userID string, since int64) ([]*models.Prompt, error) {
	items, err := s.repomanager.Prompts(s.db).ListUpdatedSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("error listing changed prompts: %w", err)
	}
	return items, nil
}

// Upsert stores p for userID. It reports false when a newer version was
// already stored; that is not an error.
func (s *PromptService) Upsert(ctx context.Context, userID string, p *models.Prompt) (bool, error) {
	if err := validatePrompt(p); err != nil {
		return false, err
	}
	p.UserID = userID

	change, err := upsert(ctx, s.repomanager, s.db, p)
	if err != nil {
		return false, err
	}
	s.publish(userID, change)
	return change != nil, nil
}

// SoftDelete tombstones id. Unknown ids return common.ErrorNotFound.
func (s *PromptService) SoftDelete(ctx context.Context, userID, id string, updatedAt int64) error {
	change, err := softDelete(ctx, s.repomanager, s.db, userID, id, updatedAt)
	if err != nil {
		return err
	}
	s.publish(userID, change)
	return nil
}

// CommitBatch applies ops in one transaction. Deletes and lock changes of
// unknown ids are skipped. It returns the number of writes that changed a
// row.
func (s *PromptService) CommitBatch(ctx context.Context, userID string, ops []BatchOp) (int, error) {
	if len(ops) > MaxCommitOps {
		return 0, fmt.Errorf("%w: %d ops exceed the limit of %d", common.ErrorInvalidInput, len(ops), MaxCommitOps)
	}
	for _, op := range ops {
		if err := validateOp(op); err != nil {
			return 0, err
		}
	}

	var changes []*models.Change
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, op := range ops {
			var (
				change *models.Change
				err    error
			)
			switch op.Kind {
			case OpUpsert:
				p := *op.Prompt
				p.UserID = userID
				p.ID = op.ID
				change, err = upsert(ctx, s.repomanager, tx, &p)
			case OpDelete:
				change, err = softDelete(ctx, s.repomanager, tx, userID, op.ID, op.UpdatedAt)
			case OpLock:
				change, err = setLocked(ctx, s.repomanager, tx, userID, op.ID, op.Locked, op.UpdatedAt)
			}
			if errors.Is(err, common.ErrorNotFound) {
				s.logger.Debug(ctx, "skipping write to unknown prompt", "id", op.ID, "kind", op.Kind)
				continue
			}
			if err != nil {
				return err
			}
			if change != nil {
				changes = append(changes, change)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error committing batch: %w", err)
	}

	s.publish(userID, changes...)
	return len(changes), nil
}

// Purge removes id permanently and tells watchers it is gone.
func (s *PromptService) Purge(ctx context.Context, userID, id string) error {
	if err := s.repomanager.Prompts(s.db).Purge(ctx, userID, id); err != nil {
		return err
	}
	s.publish(userID, &models.Change{Kind: models.ChangeRemoved, ID: id})
	return nil
}

// Watch subscribes to committed changes of userID. cancel must be called
// once the caller stops reading.
func (s *PromptService) Watch(userID string) (<-chan models.Change, func()) {
	return s.changes.Subscribe(userID)
}

func (s *PromptService) publish(userID string, changes ...*models.Change) {
	events := make([]models.Change, 0, len(changes))
	for _, c := range changes {
		if c != nil {
			events = append(events, *c)
		}
	}
	if len(events) > 0 {
		s.changes.Publish(userID, events...)
	}
}

func upsert(ctx context.Context, m repomanager.RepositoryManager, db dbx.DBTX, p *models.Prompt) (*models.Change, error) {
	stored, inserted, err := m.Prompts(db).Upsert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("error saving prompt %s: %w", p.ID, err)
	}
	if stored == nil {
		return nil, nil
	}
	kind := models.ChangeModified
	if inserted {
		kind = models.ChangeAdded
	}
	return &models.Change{Kind: kind, ID: stored.ID, Prompt: stored}, nil
}

func softDelete(ctx context.Context, m repomanager.RepositoryManager, db dbx.DBTX, userID, id string, updatedAt int64) (*models.Change, error) {
	stored, err := m.Prompts(db).SoftDelete(ctx, userID, id, updatedAt)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error deleting prompt %s: %w", id, err)
	}
	if stored == nil {
		return nil, nil
	}
	return &models.Change{Kind: models.ChangeModified, ID: id, Prompt: stored}, nil
}

func setLocked(ctx context.Context, m repomanager.RepositoryManager, db dbx.DBTX, userID, id string, locked bool, updatedAt int64) (*models.Change, error) {
	stored, err := m.Prompts(db).SetLocked(ctx, userID, id, locked, updatedAt)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error locking prompt %s: %w", id, err)
	}
	if stored == nil {
		return nil, nil
	}
	return &models.Change{Kind: models.ChangeModified, ID: id, Prompt: stored}, nil
}

func validatePrompt(p *models.Prompt) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: prompt id is required", common.ErrorInvalidInput)
	}
	if p.UpdatedAt <= 0 {
		return fmt.Errorf("%w: prompt %s has no updatedAt", common.ErrorInvalidInput, p.ID)
	}
	return nil
}

func validateOp(op BatchOp) error {
	if op.ID == "" {
		return fmt.Errorf("%w: op without id", common.ErrorInvalidInput)
	}
	switch op.Kind {
	case OpUpsert:
		if op.Prompt == nil {
			return fmt.Errorf("%w: upsert of %s without a prompt", common.ErrorInvalidInput, op.ID)
		}
		p := *op.Prompt
		p.ID = op.ID
		return validatePrompt(&p)
	case OpDelete, OpLock:
		if op.UpdatedAt <= 0 {
			return fmt.Errorf("%w: %s of %s has no updatedAt", common.ErrorInvalidInput, op.Kind, op.ID)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown op kind %q", common.ErrorInvalidInput, op.Kind)
	}
}

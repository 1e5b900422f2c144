package prompts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/dbx"
	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
)

const columns = `user_id, id, title, content, created_at, updated_at, use_count, last_used, is_active, locked, source_url, tags`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrompt(row scanner, extra ...any) (*models.Prompt, error) {
	var (
		p    models.Prompt
		tags []byte
	)
	dest := []any{
		&p.UserID, &p.ID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt,
		&p.UseCount, &p.LastUsed, &p.IsActive, &p.Locked, &p.SourceURL, &tags,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &p, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Prompt) (*models.Prompt, bool, error) {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return nil, false, fmt.Errorf("encode tags: %w", err)
	}

	query := `
		INSERT INTO prompts (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb)
		ON CONFLICT (user_id, id)
		DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			use_count = EXCLUDED.use_count,
			last_used = EXCLUDED.last_used,
			is_active = EXCLUDED.is_active,
			locked = EXCLUDED.locked,
			source_url = EXCLUDED.source_url,
			tags = EXCLUDED.tags
			WHERE prompts.updated_at <= EXCLUDED.updated_at
		RETURNING ` + columns + `, (xmax = 0) AS inserted
	`
	var inserted bool
	stored, err := scanPrompt(r.db.QueryRowContext(ctx, query,
		p.UserID, p.ID, p.Title, p.Content, p.CreatedAt, p.UpdatedAt,
		p.UseCount, p.LastUsed, p.IsActive, p.Locked, p.SourceURL, tags,
	), &inserted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("db error: %w", err)
	}
	return stored, inserted, nil
}

// conditionalUpdate runs a last-write-wins UPDATE ... RETURNING and tells
// a stale write apart from a missing row.
func (r *PostgresRepository) conditionalUpdate(ctx context.Context, query string, userID, id string, args ...any) (*models.Prompt, error) {
	p, err := scanPrompt(r.db.QueryRowContext(ctx, query, append([]any{userID, id}, args...)...))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if _, err := r.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return nil, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, userID, id string, updatedAt int64) (*models.Prompt, error) {
	query := `
		UPDATE prompts SET is_active = FALSE, updated_at = $3
		WHERE user_id = $1 AND id = $2 AND updated_at <= $3
		RETURNING ` + columns
	return r.conditionalUpdate(ctx, query, userID, id, updatedAt)
}

func (r *PostgresRepository) SetLocked(ctx context.Context, userID, id string, locked bool, updatedAt int64) (*models.Prompt, error) {
	query := `
		UPDATE prompts SET locked = $3, updated_at = $4
		WHERE user_id = $1 AND id = $2 AND updated_at <= $4
		RETURNING ` + columns
	return r.conditionalUpdate(ctx, query, userID, id, locked, updatedAt)
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.Prompt, error) {
	query := `SELECT ` + columns + ` FROM prompts WHERE user_id = $1 AND id = $2`
	p, err := scanPrompt(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Prompt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select prompts: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Prompt, 0)
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, userID string) ([]*models.Prompt, error) {
	return r.list(ctx, `SELECT `+columns+` FROM prompts WHERE user_id = $1 AND is_active ORDER BY updated_at DESC`, userID)
}

// ListUpdatedSince includes tombstones so that deletions propagate.
func (r *PostgresRepository) ListUpdatedSince(ctx context.Context, userID string, since int64) ([]*models.Prompt, error) {
	return r.list(ctx, `SELECT `+columns+` FROM prompts WHERE user_id = $1 AND updated_at > $2 ORDER BY updated_at`, userID, since)
}

func (r *PostgresRepository) ListAll(ctx context.Context, userID string) ([]*models.Prompt, error) {
	return r.list(ctx, `SELECT `+columns+` FROM prompts WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (r *PostgresRepository) Purge(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM prompts WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

package prompts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/client/notify"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/dbx"
)

const promptColumns = `id, title, content, created_at, updated_at, use_count, last_used,
	is_active, locked, source_url, tags`

const upsertQuery = `INSERT INTO prompts (` + promptColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		use_count = excluded.use_count,
		last_used = excluded.last_used,
		is_active = excluded.is_active,
		locked = excluded.locked,
		source_url = excluded.source_url,
		tags = excluded.tags`

// SQLiteRepository implements Repository on a *sql.DB.
type SQLiteRepository struct {
	db       *sql.DB
	notifier notify.Notifier
	now      func() time.Time
}

func NewSQLiteRepository(db *sql.DB, notifier notify.Notifier) *SQLiteRepository {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &SQLiteRepository{db: db, notifier: notifier, now: time.Now}
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Prompt, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt %s: %w", id, err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Prompt, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+promptColumns+` FROM prompts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select prompts: %w", err)
	}
	defer rows.Close()

	var result []models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, p models.Prompt) error {
	if err := upsert(ctx, r.db, p); err != nil {
		return err
	}
	r.emit(p)
	return nil
}

func (r *SQLiteRepository) PutMany(ctx context.Context, batch map[string]models.Prompt) error {
	if len(batch) == 0 {
		return nil
	}

	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, id := range ids {
			p := batch[id]
			p.ID = id
			if err := upsert(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		p := batch[id]
		p.ID = id
		r.emit(p)
	}
	return nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string) (*models.Prompt, error) {
	var tomb *models.Prompt

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		row := tx.QueryRowContext(ctx, `SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id)
		p, err := scanPrompt(row)
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get prompt %s: %w", id, err)
		}

		p.IsActive = false
		p.UpdatedAt = models.NextTimestamp(r.now().UnixMilli(), p.UpdatedAt)

		_, err = tx.ExecContext(ctx, `UPDATE prompts SET is_active = 0, updated_at = ? WHERE id = ?`, p.UpdatedAt, id)
		if err != nil {
			return fmt.Errorf("failed to soft delete prompt %s: %w", id, err)
		}
		tomb = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.notifier.RecordDeleted(id)
	return tomb, nil
}

func (r *SQLiteRepository) emit(p models.Prompt) {
	if p.IsActive {
		r.notifier.RecordUpserted(p)
		return
	}
	r.notifier.RecordDeleted(p.ID)
}

func upsert(ctx context.Context, db dbx.DBTX, p models.Prompt) error {
	tags, err := json.Marshal(nonNil(p.Tags))
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	_, err = db.ExecContext(ctx, upsertQuery,
		p.ID, p.Title, p.Content, p.CreatedAt, p.UpdatedAt, p.UseCount, p.LastUsed,
		p.IsActive, p.Locked, p.SourceURL, string(tags))
	if err != nil {
		return fmt.Errorf("failed to upsert prompt %s: %w", p.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrompt(s scanner) (*models.Prompt, error) {
	var (
		p    models.Prompt
		tags string
	)
	err := s.Scan(&p.ID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt, &p.UseCount, &p.LastUsed,
		&p.IsActive, &p.Locked, &p.SourceURL, &tags)
	if err != nil {
		return nil, err
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags of %s: %w", p.ID, err)
		}
	}
	if len(p.Tags) == 0 {
		p.Tags = nil
	}
	return &p, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// DeleteAll physically removes every stored prompt. It is used when another
// account logs in on this device; nothing is emitted.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM prompts`); err != nil {
		return fmt.Errorf("failed to delete prompts: %w", err)
	}
	return nil
}

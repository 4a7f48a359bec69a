package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
)

const contentColumns = `
id, author_id, parent_id, tag, body, visibility, like_count, comment_count, created_at, updated_at`

type ContentRepo struct {
	pool *pgxpool.Pool
}

func NewContentRepo(pool *pgxpool.Pool) *ContentRepo {
	return &ContentRepo{pool: pool}
}

func (r *ContentRepo) Create(ctx context.Context, authorID int64, parentID *int64, tag enums.Tag, body string) (model.Content, error) {
	if r.pool == nil {
		return model.Content{}, fmt.Errorf("postgres pool is nil")
	}
	if authorID <= 0 || strings.TrimSpace(body) == "" {
		return model.Content{}, fmt.Errorf("invalid content payload")
	}
	if !tag.Valid() {
		return model.Content{}, fmt.Errorf("invalid content tag %q", tag)
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO contents (
	author_id,
	parent_id,
	tag,
	body,
	visibility,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, 'visible', NOW(), NOW())
RETURNING `+contentColumns, authorID, parentID, string(tag), body)

	return r.scanOne(row)
}

func (r *ContentRepo) FindByID(ctx context.Context, contentID int64) (model.Content, error) {
	if r.pool == nil {
		return model.Content{}, fmt.Errorf("postgres pool is nil")
	}
	if contentID <= 0 {
		return model.Content{}, ErrContentNotFound
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+contentColumns+`
FROM contents
WHERE id = $1
`, contentID)
	return r.scanOne(row)
}

func (r *ContentRepo) FindByTag(ctx context.Context, tag enums.Tag, limit int) ([]model.Content, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+contentColumns+`
FROM contents
WHERE tag = $1 AND visibility = 'visible'
ORDER BY created_at DESC, id DESC
LIMIT $2
`, string(tag), limit)
	if err != nil {
		return nil, fmt.Errorf("query contents by tag: %w", err)
	}
	defer rows.Close()

	var contents []model.Content
	for rows.Next() {
		content, scanErr := scanContent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan content: %w", scanErr)
		}
		contents = append(contents, content)
	}
	return contents, rows.Err()
}

func (r *ContentRepo) UpdateVisibility(ctx context.Context, contentID int64, visibility enums.Visibility) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	res, err := r.pool.Exec(ctx, `
UPDATE contents
SET visibility = $2,
    updated_at = NOW()
WHERE id = $1
`, contentID, string(visibility))
	if err != nil {
		return fmt.Errorf("update content visibility: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrContentNotFound
	}
	return nil
}

// SoftDelete marks the content deleted while keeping the row so reports filed
// against it retain a valid reference.
func (r *ContentRepo) SoftDelete(ctx context.Context, contentID int64) error {
	return r.UpdateVisibility(ctx, contentID, enums.VisibilityDeleted)
}

func (r *ContentRepo) scanOne(row pgx.Row) (model.Content, error) {
	content, err := scanContent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Content{}, ErrContentNotFound
		}
		return model.Content{}, fmt.Errorf("query content: %w", err)
	}
	return content, nil
}

func scanContent(row pgx.Row) (model.Content, error) {
	var (
		content    model.Content
		tag        string
		visibility string
	)
	err := row.Scan(
		&content.ID,
		&content.AuthorID,
		&content.ParentID,
		&tag,
		&content.Body,
		&visibility,
		&content.LikeCount,
		&content.CommentCount,
		&content.CreatedAt,
		&content.UpdatedAt,
	)
	if err != nil {
		return model.Content{}, err
	}
	content.Tag = enums.Tag(tag)
	content.Visibility = enums.Visibility(visibility)
	return content, nil
}

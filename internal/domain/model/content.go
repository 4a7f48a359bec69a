package model

import (
	"time"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
)

// Content is a post, comment or reply. Comments and replies reference their
// parent by id so ownership and authorization checks treat all three uniformly.
type Content struct {
	ID           int64            `json:"id"`
	AuthorID     int64            `json:"author_id"`
	ParentID     *int64           `json:"parent_id,omitempty"`
	Tag          enums.Tag        `json:"tag"`
	Body         string           `json:"body"`
	Visibility   enums.Visibility `json:"visibility"`
	LikeCount    int              `json:"like_count"`
	CommentCount int              `json:"comment_count"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

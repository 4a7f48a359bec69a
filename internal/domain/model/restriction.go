package model

import (
	"time"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
)

type Restriction struct {
	ID        int64                 `json:"id"`
	AccountID int64                 `json:"account_id"`
	IssuedBy  int64                 `json:"issued_by"`
	Type      enums.RestrictionType `json:"restriction_type"`
	Reason    string                `json:"reason"`
	StartDate time.Time             `json:"start_date"`
	EndDate   *time.Time            `json:"end_date"`
	IsActive  bool                  `json:"is_active"`
	CreatedAt time.Time             `json:"created_at"`
}

// InEffect reports whether the restriction is currently in effect. Expiry is
// computed at query time; a stale is_active flag on an expired temporary ban
// does not count.
func (r Restriction) InEffect(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	return r.EndDate == nil || !r.EndDate.Before(now)
}

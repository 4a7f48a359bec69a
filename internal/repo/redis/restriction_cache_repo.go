package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
)

const restrictionStatusPrefix = "restriction_status:"

// RestrictionCacheRepo stores the computed self-check result for the short
// window between client polls, so the ~10s polling loop does not hit postgres
// on every request. Entries are invalidated whenever a restriction is issued
// or lifted.
type RestrictionCacheRepo struct {
	client *goredis.Client
}

type CachedStatus struct {
	Restricted bool                  `json:"restricted"`
	Type       enums.RestrictionType `json:"restriction_type,omitempty"`
	Reason     string                `json:"reason,omitempty"`
	EndDate    *time.Time            `json:"end_date,omitempty"`
}

func NewRestrictionCacheRepo(client *goredis.Client) *RestrictionCacheRepo {
	return &RestrictionCacheRepo{client: client}
}

func (r *RestrictionCacheRepo) Get(ctx context.Context, accountID int64) (CachedStatus, bool, error) {
	if r.client == nil {
		return CachedStatus{}, false, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, restrictionStatusKey(accountID)).Bytes()
	if err == goredis.Nil {
		return CachedStatus{}, false, nil
	}
	if err != nil {
		return CachedStatus{}, false, fmt.Errorf("get restriction status: %w", err)
	}

	var status CachedStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return CachedStatus{}, false, fmt.Errorf("decode restriction status: %w", err)
	}
	return status, true, nil
}

func (r *RestrictionCacheRepo) Set(ctx context.Context, accountID int64, status CachedStatus, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return fmt.Errorf("invalid restriction cache ttl")
	}

	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode restriction status: %w", err)
	}
	if err := r.client.Set(ctx, restrictionStatusKey(accountID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set restriction status: %w", err)
	}
	return nil
}

func (r *RestrictionCacheRepo) Invalidate(ctx context.Context, accountID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, restrictionStatusKey(accountID)).Err(); err != nil {
		return fmt.Errorf("invalidate restriction status: %w", err)
	}
	return nil
}

func restrictionStatusKey(accountID int64) string {
	return fmt.Sprintf("%s%d", restrictionStatusPrefix, accountID)
}

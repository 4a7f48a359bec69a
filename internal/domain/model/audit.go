package model

import "time"

// AuditEntry is one row of the append-only security trail. ActorID is nil for
// failures that happen before authentication resolves an identity.
type AuditEntry struct {
	ID         int64     `json:"id"`
	ActorID    *int64    `json:"actor_id"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Detail     string    `json:"detail"`
	OriginIP   string    `json:"origin_ip"`
	CreatedAt  time.Time `json:"created_at"`
}

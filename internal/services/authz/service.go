package authz

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
	"github.com/Arianini/CSSECDV-MCO/internal/services/audit"
)

// Actions evaluated against a content resource.
type Action string

const (
	ActionEdit     Action = "edit"
	ActionDelete   Action = "delete"
	ActionModerate Action = "moderate"
)

type ContentStore interface {
	FindByID(ctx context.Context, contentID int64) (model.Content, error)
}

type Auditor interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

// Service is the single authorization predicate for the whole application.
// Call sites never re-implement role checks inline; they ask CanAct.
type Service struct {
	contents ContentStore
	audit    Auditor
}

func NewService(contents ContentStore, auditor Auditor) *Service {
	return &Service{contents: contents, audit: auditor}
}

// Allowed evaluates the composable checks in precedence order: ownership,
// role ceiling, delegated tag authority. Ownership only covers acting on your
// own content; it never grants moderation. Pure; use CanAct when the resource
// still has to be resolved and the decision must be audited.
func Allowed(actor model.Account, action Action, content model.Content) bool {
	if action != ActionModerate && actor.ID > 0 && actor.ID == content.AuthorID {
		return true
	}
	if actor.Role == enums.RoleAdministrator {
		return true
	}
	return actor.ManagesTag(content.Tag)
}

// CanAct resolves the resource and decides whether the actor may perform the
// action on it. A resource that cannot be loaded, for whatever reason, denies
// the action: authorization fails closed. Every denial is audited before the
// result is returned.
func (s *Service) CanAct(ctx context.Context, actor model.Account, action Action, contentID int64, originIP string) bool {
	if s.contents == nil {
		s.recordDenial(ctx, actor, action, contentID, originIP, "content store unavailable")
		return false
	}

	content, err := s.contents.FindByID(ctx, contentID)
	if err != nil {
		s.recordDenial(ctx, actor, action, contentID, originIP, "resource not found")
		return false
	}

	if Allowed(actor, action, content) {
		return true
	}

	s.recordDenial(ctx, actor, action, contentID, originIP, fmt.Sprintf("no authority over tag %s", content.Tag))
	return false
}

// CanModerate decides moderation authority over content the caller already
// holds. Administrators bypass; managers need the content's tag delegated.
// Denials are audited before the result is returned.
func (s *Service) CanModerate(ctx context.Context, actor model.Account, content model.Content, originIP string) bool {
	if Allowed(actor, ActionModerate, content) {
		return true
	}
	s.recordDenial(ctx, actor, ActionModerate, content.ID, originIP, fmt.Sprintf("no authority over tag %s", content.Tag))
	return false
}

// HasLevel is the coarse role gate for page and feature access. A feature
// requiring level N is open to any role at level N or above.
func HasLevel(role enums.Role, minimum enums.Role) bool {
	return role.Level() >= minimum.Level() && role.Level() > 0
}

func (s *Service) recordDenial(ctx context.Context, actor model.Account, action Action, contentID int64, originIP, detail string) {
	if s.audit == nil {
		return
	}

	var actorID *int64
	if actor.ID > 0 {
		id := actor.ID
		actorID = &id
	}
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:    actorID,
		Action:     audit.ActionAccessDenied,
		TargetType: audit.TargetContent,
		TargetID:   strconv.FormatInt(contentID, 10),
		Detail:     fmt.Sprintf("%s denied: %s", action, detail),
		OriginIP:   originIP,
	})
}

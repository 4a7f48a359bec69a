package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
)

// Action codes recorded in the security trail.
const (
	ActionLoginSuccess      = "LOGIN_SUCCESS"
	ActionLoginFailed       = "LOGIN_FAILED"
	ActionAccountLocked     = "ACCOUNT_LOCKED"
	ActionAccessDenied      = "ACCESS_DENIED"
	ActionPasswordChanged   = "PASSWORD_CHANGED"
	ActionPasswordRejected  = "PASSWORD_CHANGE_REJECTED"
	ActionAccountRegistered = "ACCOUNT_REGISTERED"
	ActionRoleChanged       = "ROLE_CHANGED"
	ActionAccountDeleted    = "ACCOUNT_DELETED"
	ActionReportFiled       = "REPORT_FILED"
	ActionReportHandled     = "REPORT_HANDLED"
	ActionReportEscalated   = "REPORT_ESCALATED"
	ActionRestrictionIssued = "RESTRICTION_ISSUED"
	ActionRestrictionLifted = "RESTRICTION_LIFTED"
	ActionContentHidden     = "CONTENT_HIDDEN"
	ActionContentDeleted    = "CONTENT_DELETED"
)

// Target types.
const (
	TargetAccount = "account"
	TargetContent = "content"
	TargetReport  = "report"
)

type Store interface {
	Insert(ctx context.Context, entry model.AuditEntry) error
}

// Service is the audit log sink. Record never returns an error: a failing
// sink must not break the caller's critical path, so failures land on the
// fallback zap channel together with the entry that could not be stored.
type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

func (s *Service) Record(ctx context.Context, entry model.AuditEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	if s.store == nil {
		s.fallback(entry, nil)
		return
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		s.fallback(entry, err)
	}
}

func (s *Service) fallback(entry model.AuditEntry, cause error) {
	fields := []zap.Field{
		zap.String("action", entry.Action),
		zap.String("target_type", entry.TargetType),
		zap.String("target_id", entry.TargetID),
		zap.String("detail", entry.Detail),
		zap.String("origin_ip", entry.OriginIP),
		zap.Time("at", entry.CreatedAt),
	}
	if entry.ActorID != nil {
		fields = append(fields, zap.Int64("actor_id", *entry.ActorID))
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	s.log.Error("audit sink write failed, entry preserved in log", fields...)
}

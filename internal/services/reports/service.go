package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/rules"
	pgrepo "github.com/Arianini/CSSECDV-MCO/internal/repo/postgres"
	"github.com/Arianini/CSSECDV-MCO/internal/services/audit"
)

var (
	ErrValidation    = errors.New("invalid moderation request")
	ErrNotFound      = errors.New("report or content not found")
	ErrForbidden     = errors.New("no authority over this content")
	ErrDuplicate     = errors.New("content already reported by this account")
	ErrNotHandleable = errors.New("report is already closed")
)

type ReportStore interface {
	Create(ctx context.Context, contentID, reporterID int64, reason enums.ReportReason, description string) (model.Report, error)
	GetByID(ctx context.Context, reportID int64) (model.Report, error)
	ListAll(ctx context.Context) ([]model.Report, error)
	ListByTags(ctx context.Context, tags []enums.Tag) ([]model.Report, error)
	MarkHandled(ctx context.Context, reportID, handlerID int64, status enums.ReportStatus, notes string, resolvedAt time.Time) (model.Report, error)
	MarkEscalated(ctx context.Context, reportID, escalatorID int64, escalatedAt time.Time) (model.Report, error)
}

type ContentStore interface {
	FindByID(ctx context.Context, contentID int64) (model.Content, error)
	UpdateVisibility(ctx context.Context, contentID int64, visibility enums.Visibility) error
	SoftDelete(ctx context.Context, contentID int64) error
}

type Restrictor interface {
	Issue(ctx context.Context, targetID int64, issuer model.Account, kind enums.RestrictionType, reason string, durationHours *int, originIP string) (model.Restriction, error)
}

// Authorizer decides moderation authority; satisfied by the authz service,
// which also audits its own denials.
type Authorizer interface {
	CanModerate(ctx context.Context, actor model.Account, content model.Content, originIP string) bool
}

type Auditor interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

type Config struct {
	DefaultRestrictHours int
}

// Service drives the report lifecycle: intake, the manager queue, handling
// actions and escalation. Reports are never deleted; every one ends in a
// terminal status with its resolution recorded.
type Service struct {
	reports      ReportStore
	contents     ContentStore
	restrictions Restrictor
	authz        Authorizer
	audit        Auditor
	cfg          Config
	now          func() time.Time
}

func NewService(reports ReportStore, contents ContentStore, restrictor Restrictor, authorizer Authorizer, auditor Auditor, cfg Config) *Service {
	if cfg.DefaultRestrictHours <= 0 {
		cfg.DefaultRestrictHours = rules.DefaultRestrictHours
	}
	return &Service{
		reports:      reports,
		contents:     contents,
		restrictions: restrictor,
		authz:        authorizer,
		audit:        auditor,
		cfg:          cfg,
		now:          time.Now,
	}
}

// File creates a pending report. The per-(reporter, content) uniqueness lives
// in the store as a constraint, so two concurrent submissions cannot both
// succeed; a repeat submission is rejected, never merged.
func (s *Service) File(ctx context.Context, contentID int64, reporter model.Account, reason enums.ReportReason, description, originIP string) (model.Report, error) {
	if contentID <= 0 || reporter.ID <= 0 {
		return model.Report{}, ErrValidation
	}
	if !reason.Valid() {
		return model.Report{}, fmt.Errorf("%w: unknown reason %q", ErrValidation, reason)
	}
	if s.reports == nil || s.contents == nil {
		return model.Report{}, fmt.Errorf("report service dependencies are not configured")
	}

	if _, err := s.contents.FindByID(ctx, contentID); err != nil {
		if errors.Is(err, pgrepo.ErrContentNotFound) {
			return model.Report{}, ErrNotFound
		}
		return model.Report{}, fmt.Errorf("load reported content: %w", err)
	}

	report, err := s.reports.Create(ctx, contentID, reporter.ID, reason, description)
	if err != nil {
		if errors.Is(err, pgrepo.ErrDuplicateReport) {
			return model.Report{}, ErrDuplicate
		}
		return model.Report{}, fmt.Errorf("create report: %w", err)
	}

	s.record(ctx, reporter.ID, audit.ActionReportFiled, audit.TargetContent, contentID, fmt.Sprintf("reason=%s", reason), originIP)
	return report, nil
}

// List returns the moderation queue for the actor. Administrators see every
// report; managers only those whose content falls under their delegated tags,
// resolved in a single join. Plain users have no queue.
func (s *Service) List(ctx context.Context, actor model.Account) ([]model.Report, error) {
	if s.reports == nil {
		return nil, fmt.Errorf("report service dependencies are not configured")
	}

	switch actor.Role {
	case enums.RoleAdministrator:
		return s.reports.ListAll(ctx)
	case enums.RoleManager:
		if len(actor.ManagedTags) == 0 {
			return nil, nil
		}
		return s.reports.ListByTags(ctx, actor.ManagedTags)
	default:
		return nil, ErrForbidden
	}
}

// Handle applies a moderation action to an open report. Validation happens
// before any mutation: an invalid request leaves the report, the content and
// the ledger untouched. Pending and escalated reports are both handleable;
// terminal ones are not.
func (s *Service) Handle(ctx context.Context, reportID int64, handler model.Account, action enums.ModerationAction, notes string, hours *int, originIP string) (model.Report, error) {
	if reportID <= 0 || handler.ID <= 0 {
		return model.Report{}, ErrValidation
	}
	if !action.Valid() {
		return model.Report{}, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
	if strings.TrimSpace(notes) == "" {
		return model.Report{}, fmt.Errorf("%w: resolution notes are required", ErrValidation)
	}
	if hours != nil && *hours <= 0 {
		return model.Report{}, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}
	if s.reports == nil || s.contents == nil || s.restrictions == nil {
		return model.Report{}, fmt.Errorf("report service dependencies are not configured")
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrReportNotFound) {
			return model.Report{}, ErrNotFound
		}
		return model.Report{}, fmt.Errorf("load report: %w", err)
	}
	if !report.Status.Handleable() {
		return model.Report{}, ErrNotHandleable
	}

	content, err := s.contents.FindByID(ctx, report.ContentID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrContentNotFound) {
			return model.Report{}, ErrNotFound
		}
		return model.Report{}, fmt.Errorf("load reported content: %w", err)
	}

	if err := s.requireTagAuthority(ctx, handler, content, originIP); err != nil {
		return model.Report{}, err
	}

	switch action {
	case enums.ActionHidePost:
		if err := s.contents.UpdateVisibility(ctx, content.ID, enums.VisibilityHidden); err != nil {
			return model.Report{}, fmt.Errorf("hide content: %w", err)
		}
		s.record(ctx, handler.ID, audit.ActionContentHidden, audit.TargetContent, content.ID,
			fmt.Sprintf("visibility %s -> %s", content.Visibility, enums.VisibilityHidden), originIP)

	case enums.ActionDeletePost:
		// Reported content is only ever soft-deleted so the report keeps a
		// valid reference.
		if err := s.contents.SoftDelete(ctx, content.ID); err != nil {
			return model.Report{}, fmt.Errorf("delete content: %w", err)
		}
		s.record(ctx, handler.ID, audit.ActionContentDeleted, audit.TargetContent, content.ID,
			fmt.Sprintf("visibility %s -> %s", content.Visibility, enums.VisibilityDeleted), originIP)

	case enums.ActionWarnUser:
		if _, err := s.restrictions.Issue(ctx, content.AuthorID, handler, enums.RestrictionWarning, notes, nil, originIP); err != nil {
			return model.Report{}, err
		}

	case enums.ActionRestrictUser:
		duration := s.cfg.DefaultRestrictHours
		if hours != nil {
			duration = *hours
		}
		if _, err := s.restrictions.Issue(ctx, content.AuthorID, handler, enums.RestrictionTemporaryBan, notes, &duration, originIP); err != nil {
			return model.Report{}, err
		}

	case enums.ActionDismiss:
		// No content or ledger mutation.
	}

	status := enums.ReportStatusResolved
	if action == enums.ActionDismiss {
		status = enums.ReportStatusDismissed
	}

	handled, err := s.reports.MarkHandled(ctx, reportID, handler.ID, status, strings.TrimSpace(notes), s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrReportNotFound) {
			// Lost the race against another handler.
			return model.Report{}, ErrNotHandleable
		}
		return model.Report{}, fmt.Errorf("close report: %w", err)
	}

	s.record(ctx, handler.ID, audit.ActionReportHandled, audit.TargetReport, reportID,
		fmt.Sprintf("action=%s status %s -> %s", action, report.Status, handled.Status), originIP)
	return handled, nil
}

// Escalate hands a pending report over to the administrators. A reason is
// required; escalated reports stay in the queue until an administrator
// handles them.
func (s *Service) Escalate(ctx context.Context, reportID int64, escalator model.Account, reason, originIP string) (model.Report, error) {
	if reportID <= 0 || escalator.ID <= 0 {
		return model.Report{}, ErrValidation
	}
	if strings.TrimSpace(reason) == "" {
		return model.Report{}, fmt.Errorf("%w: escalation reason is required", ErrValidation)
	}
	if s.reports == nil || s.contents == nil {
		return model.Report{}, fmt.Errorf("report service dependencies are not configured")
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrReportNotFound) {
			return model.Report{}, ErrNotFound
		}
		return model.Report{}, fmt.Errorf("load report: %w", err)
	}
	if report.Status != enums.ReportStatusPending {
		return model.Report{}, ErrNotHandleable
	}

	content, err := s.contents.FindByID(ctx, report.ContentID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrContentNotFound) {
			return model.Report{}, ErrNotFound
		}
		return model.Report{}, fmt.Errorf("load reported content: %w", err)
	}

	if err := s.requireTagAuthority(ctx, escalator, content, originIP); err != nil {
		return model.Report{}, err
	}

	escalated, err := s.reports.MarkEscalated(ctx, reportID, escalator.ID, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrReportNotFound) {
			return model.Report{}, ErrNotHandleable
		}
		return model.Report{}, fmt.Errorf("escalate report: %w", err)
	}

	s.record(ctx, escalator.ID, audit.ActionReportEscalated, audit.TargetReport, reportID,
		fmt.Sprintf("reason=%s", strings.TrimSpace(reason)), originIP)
	return escalated, nil
}

// requireTagAuthority enforces the delegated-tag check for moderation work
// through the authorization engine, which audits the denial itself.
func (s *Service) requireTagAuthority(ctx context.Context, actor model.Account, content model.Content, originIP string) error {
	if s.authz == nil || !s.authz.CanModerate(ctx, actor, content, originIP) {
		return ErrForbidden
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action, targetType string, targetID int64, detail, originIP string) {
	if s.audit == nil {
		return
	}
	actor := actorID
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:    &actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   strconv.FormatInt(targetID, 10),
		Detail:     detail,
		OriginIP:   originIP,
	})
}

package restrictions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/rules"
	pgrepo "github.com/Arianini/CSSECDV-MCO/internal/repo/postgres"
	redrepo "github.com/Arianini/CSSECDV-MCO/internal/repo/redis"
	"github.com/Arianini/CSSECDV-MCO/internal/services/audit"
)

var (
	ErrValidation  = errors.New("invalid restriction request")
	ErrNotFound    = errors.New("account not found")
	ErrForbidden   = errors.New("restriction type requires administrator")
	ErrDurationCap = errors.New("duration exceeds the manager cap")
)

type Store interface {
	Insert(ctx context.Context, tx pgx.Tx, restriction model.Restriction) (model.Restriction, error)
	ListActive(ctx context.Context, accountID int64, now time.Time) ([]model.Restriction, error)
	ListHistory(ctx context.Context, accountID int64) ([]model.Restriction, error)
	DeactivateAll(ctx context.Context, tx pgx.Tx, accountID int64) (int64, error)
}

type AccountLocker interface {
	LockRow(ctx context.Context, tx pgx.Tx, accountID int64) error
}

type StatusCache interface {
	Get(ctx context.Context, accountID int64) (redrepo.CachedStatus, bool, error)
	Set(ctx context.Context, accountID int64, status redrepo.CachedStatus, ttl time.Duration) error
	Invalidate(ctx context.Context, accountID int64) error
}

type Auditor interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

type Config struct {
	ManagerTempBanCapHours int
	CacheTTL               time.Duration
}

// Service is the append-only restriction ledger. Rows are only ever added or
// deactivated; nothing is deleted, so the full history per account survives.
type Service struct {
	pool     *pgxpool.Pool
	store    Store
	accounts AccountLocker
	cache    StatusCache
	audit    Auditor
	cfg      Config
	now      func() time.Time
}

type Status struct {
	Restricted bool
	Active     *model.Restriction
}

func NewService(pool *pgxpool.Pool, store Store, accounts AccountLocker, cache StatusCache, auditor Auditor, cfg Config) *Service {
	if cfg.ManagerTempBanCapHours <= 0 {
		cfg.ManagerTempBanCapHours = rules.ManagerTempBanCapHours
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Second
	}
	return &Service{
		pool:     pool,
		store:    store,
		accounts: accounts,
		cache:    cache,
		audit:    auditor,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Issue creates a restriction against the target account. Managers are capped
// on temporary-ban duration; a request over the cap is rejected outright, not
// clamped. Issuing over an already permanently banned account just appends
// another history row.
func (s *Service) Issue(ctx context.Context, targetID int64, issuer model.Account, kind enums.RestrictionType, reason string, durationHours *int, originIP string) (model.Restriction, error) {
	if targetID <= 0 || issuer.ID <= 0 {
		return model.Restriction{}, ErrValidation
	}
	if !kind.Valid() {
		return model.Restriction{}, fmt.Errorf("%w: unknown restriction type %q", ErrValidation, kind)
	}
	if strings.TrimSpace(reason) == "" {
		return model.Restriction{}, fmt.Errorf("%w: reason is required", ErrValidation)
	}
	if kind != enums.RestrictionTemporaryBan && durationHours != nil {
		return model.Restriction{}, fmt.Errorf("%w: only a temporary ban carries a duration", ErrValidation)
	}
	if durationHours != nil && *durationHours <= 0 {
		return model.Restriction{}, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}
	if kind == enums.RestrictionTemporaryBan && durationHours == nil {
		return model.Restriction{}, fmt.Errorf("%w: temporary ban requires a duration", ErrValidation)
	}
	if issuer.Role != enums.RoleAdministrator {
		// Managers may only warn or issue a capped temporary ban; anything
		// unbounded is the administrator's call.
		if kind == enums.RestrictionPermanentBan {
			return model.Restriction{}, ErrForbidden
		}
		if kind == enums.RestrictionTemporaryBan && *durationHours > s.cfg.ManagerTempBanCapHours {
			return model.Restriction{}, ErrDurationCap
		}
	}
	if s.pool == nil || s.store == nil || s.accounts == nil {
		return model.Restriction{}, fmt.Errorf("restriction service dependencies are not configured")
	}

	now := s.now().UTC()
	restriction := model.Restriction{
		AccountID: targetID,
		IssuedBy:  issuer.ID,
		Type:      kind,
		Reason:    strings.TrimSpace(reason),
		StartDate: now,
	}
	if durationHours != nil {
		end := now.Add(time.Duration(*durationHours) * time.Hour)
		restriction.EndDate = &end
	}

	var inserted model.Restriction
	err := pgrepo.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.accounts.LockRow(ctx, tx, targetID); err != nil {
			if errors.Is(err, pgrepo.ErrAccountNotFound) {
				return ErrNotFound
			}
			return err
		}
		var insertErr error
		inserted, insertErr = s.store.Insert(ctx, tx, restriction)
		return insertErr
	})
	if err != nil {
		return model.Restriction{}, err
	}

	s.invalidate(ctx, targetID)
	s.recordIssue(ctx, inserted, originIP)
	return inserted, nil
}

// IsCurrentlyRestricted reports whether any restriction is in effect right
// now. Expiry is computed at query time; the result is cached for the client
// polling window.
func (s *Service) IsCurrentlyRestricted(ctx context.Context, accountID int64) (Status, error) {
	if accountID <= 0 {
		return Status{}, ErrValidation
	}
	if s.store == nil {
		return Status{}, fmt.Errorf("restriction store is not configured")
	}

	now := s.now().UTC()
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, accountID); err == nil && ok {
			return statusFromCache(cached, now), nil
		}
	}

	active, err := s.store.ListActive(ctx, accountID, now)
	if err != nil {
		return Status{}, fmt.Errorf("list active restrictions: %w", err)
	}

	status := Status{}
	if len(active) > 0 {
		// ListActive orders by severity; the first row is the one to surface.
		top := active[0]
		status = Status{Restricted: true, Active: &top}
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, accountID, cacheFromStatus(status), s.cfg.CacheTTL)
	}
	return status, nil
}

// History returns the full ledger for the account, newest first.
func (s *Service) History(ctx context.Context, accountID int64) ([]model.Restriction, error) {
	if accountID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("restriction store is not configured")
	}
	return s.store.ListHistory(ctx, accountID)
}

// LiftAll deactivates every active restriction for the account. Lifting an
// unrestricted account is a no-op. The account row lock serializes this
// against a concurrent Issue for the same account.
func (s *Service) LiftAll(ctx context.Context, targetID int64, issuer model.Account, originIP string) error {
	if targetID <= 0 || issuer.ID <= 0 {
		return ErrValidation
	}
	if s.pool == nil || s.store == nil || s.accounts == nil {
		return fmt.Errorf("restriction service dependencies are not configured")
	}

	var lifted int64
	err := pgrepo.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.accounts.LockRow(ctx, tx, targetID); err != nil {
			if errors.Is(err, pgrepo.ErrAccountNotFound) {
				return ErrNotFound
			}
			return err
		}
		var liftErr error
		lifted, liftErr = s.store.DeactivateAll(ctx, tx, targetID)
		return liftErr
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, targetID)
	if s.audit != nil {
		issuerID := issuer.ID
		s.audit.Record(ctx, model.AuditEntry{
			ActorID:    &issuerID,
			Action:     audit.ActionRestrictionLifted,
			TargetType: audit.TargetAccount,
			TargetID:   strconv.FormatInt(targetID, 10),
			Detail:     fmt.Sprintf("deactivated %d restriction(s)", lifted),
			OriginIP:   originIP,
		})
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, accountID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, accountID)
}

func (s *Service) recordIssue(ctx context.Context, restriction model.Restriction, originIP string) {
	if s.audit == nil {
		return
	}
	issuerID := restriction.IssuedBy
	detail := fmt.Sprintf("%s: %s", restriction.Type, restriction.Reason)
	if restriction.EndDate != nil {
		detail += fmt.Sprintf(" (until %s)", restriction.EndDate.UTC().Format(time.RFC3339))
	}
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:    &issuerID,
		Action:     audit.ActionRestrictionIssued,
		TargetType: audit.TargetAccount,
		TargetID:   strconv.FormatInt(restriction.AccountID, 10),
		Detail:     detail,
		OriginIP:   originIP,
	})
}

func statusFromCache(cached redrepo.CachedStatus, now time.Time) Status {
	if !cached.Restricted {
		return Status{}
	}
	// A ban can expire mid-TTL; re-check the end date on every hit so the
	// cached positive never outlives the restriction itself.
	if cached.EndDate != nil && cached.EndDate.Before(now) {
		return Status{}
	}
	return Status{
		Restricted: true,
		Active: &model.Restriction{
			Type:     cached.Type,
			Reason:   cached.Reason,
			EndDate:  cached.EndDate,
			IsActive: true,
		},
	}
}

func cacheFromStatus(status Status) redrepo.CachedStatus {
	if !status.Restricted || status.Active == nil {
		return redrepo.CachedStatus{}
	}
	return redrepo.CachedStatus{
		Restricted: true,
		Type:       status.Active.Type,
		Reason:     status.Active.Reason,
		EndDate:    status.Active.EndDate,
	}
}

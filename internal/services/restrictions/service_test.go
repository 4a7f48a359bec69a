package restrictions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
	redrepo "github.com/Arianini/CSSECDV-MCO/internal/repo/redis"
)

type storeStub struct {
	active      []model.Restriction
	history     []model.Restriction
	activeCalls int
}

func (s *storeStub) Insert(_ context.Context, _ pgx.Tx, restriction model.Restriction) (model.Restriction, error) {
	restriction.ID = int64(len(s.history) + 1)
	restriction.IsActive = true
	s.history = append(s.history, restriction)
	return restriction, nil
}

func (s *storeStub) ListActive(_ context.Context, _ int64, _ time.Time) ([]model.Restriction, error) {
	s.activeCalls++
	return s.active, nil
}

func (s *storeStub) ListHistory(_ context.Context, _ int64) ([]model.Restriction, error) {
	return s.history, nil
}

func (s *storeStub) DeactivateAll(_ context.Context, _ pgx.Tx, _ int64) (int64, error) {
	var n int64
	for i := range s.history {
		if s.history[i].IsActive {
			s.history[i].IsActive = false
			n++
		}
	}
	s.active = nil
	return n, nil
}

func hours(n int) *int { return &n }

func TestIssueRejectsManagerOverCap(t *testing.T) {
	svc := NewService(nil, &storeStub{}, nil, nil, nil, Config{ManagerTempBanCapHours: 48})
	manager := model.Account{ID: 2, Role: enums.RoleManager}

	_, err := svc.Issue(context.Background(), 5, manager, enums.RestrictionTemporaryBan, "spamming", hours(72), "")
	if !errors.Is(err, ErrDurationCap) {
		t.Fatalf("expected ErrDurationCap, got %v", err)
	}
}

func TestIssueValidation(t *testing.T) {
	svc := NewService(nil, &storeStub{}, nil, nil, nil, Config{})
	manager := model.Account{ID: 2, Role: enums.RoleManager}
	admin := model.Account{ID: 3, Role: enums.RoleAdministrator}

	tests := []struct {
		name     string
		targetID int64
		issuer   model.Account
		kind     enums.RestrictionType
		reason   string
		duration *int
	}{
		{name: "unknown type", targetID: 5, issuer: manager, kind: enums.RestrictionType("shadow_ban"), reason: "x", duration: nil},
		{name: "empty reason", targetID: 5, issuer: manager, kind: enums.RestrictionWarning, reason: "  ", duration: nil},
		{name: "permanent with duration", targetID: 5, issuer: admin, kind: enums.RestrictionPermanentBan, reason: "spam", duration: hours(24)},
		{name: "warning with duration", targetID: 5, issuer: admin, kind: enums.RestrictionWarning, reason: "spam", duration: hours(24)},
		{name: "temporary without duration", targetID: 5, issuer: admin, kind: enums.RestrictionTemporaryBan, reason: "spam", duration: nil},
		{name: "non-positive duration", targetID: 5, issuer: admin, kind: enums.RestrictionTemporaryBan, reason: "spam", duration: hours(0)},
		{name: "missing target", targetID: 0, issuer: admin, kind: enums.RestrictionWarning, reason: "spam", duration: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Issue(context.Background(), tt.targetID, tt.issuer, tt.kind, tt.reason, tt.duration, "")
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestIssueManagerCannotPermanentBan(t *testing.T) {
	store := &storeStub{}
	svc := NewService(nil, store, nil, nil, nil, Config{ManagerTempBanCapHours: 48})
	manager := model.Account{ID: 2, Role: enums.RoleManager, ManagedTags: []enums.Tag{enums.TagFood}}

	_, err := svc.Issue(context.Background(), 5, manager, enums.RestrictionPermanentBan, "spam", nil, "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(store.history) != 0 {
		t.Fatalf("no restriction may be created, got %d", len(store.history))
	}
}

func TestIssueAdministratorHasNoCap(t *testing.T) {
	// Validation runs before the transaction; with no pool configured the
	// admin request over the manager cap must get past the cap check.
	svc := NewService(nil, &storeStub{}, nil, nil, nil, Config{ManagerTempBanCapHours: 48})
	admin := model.Account{ID: 3, Role: enums.RoleAdministrator}

	_, err := svc.Issue(context.Background(), 5, admin, enums.RestrictionTemporaryBan, "spam", hours(720), "")
	if errors.Is(err, ErrDurationCap) {
		t.Fatalf("administrator must not be capped")
	}
	if err == nil {
		t.Fatalf("expected dependency error with nil pool")
	}
}

func TestIsCurrentlyRestrictedSurfacesMostSevere(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(24 * time.Hour)
	store := &storeStub{active: []model.Restriction{
		{ID: 2, AccountID: 5, Type: enums.RestrictionPermanentBan, Reason: "spam", IsActive: true},
		{ID: 1, AccountID: 5, Type: enums.RestrictionTemporaryBan, Reason: "flood", IsActive: true, EndDate: &end},
	}}
	svc := NewService(nil, store, nil, nil, nil, Config{})

	status, err := svc.IsCurrentlyRestricted(context.Background(), 5)
	if err != nil {
		t.Fatalf("is currently restricted: %v", err)
	}
	if !status.Restricted {
		t.Fatalf("expected restricted status")
	}
	if status.Active == nil || status.Active.Type != enums.RestrictionPermanentBan {
		t.Fatalf("expected permanent ban surfaced, got %+v", status.Active)
	}
}

func TestIsCurrentlyRestrictedUnrestricted(t *testing.T) {
	svc := NewService(nil, &storeStub{}, nil, nil, nil, Config{})

	status, err := svc.IsCurrentlyRestricted(context.Background(), 5)
	if err != nil {
		t.Fatalf("is currently restricted: %v", err)
	}
	if status.Restricted || status.Active != nil {
		t.Fatalf("expected unrestricted status, got %+v", status)
	}
}

func TestIsCurrentlyRestrictedUsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	store := &storeStub{active: []model.Restriction{
		{ID: 1, AccountID: 5, Type: enums.RestrictionPermanentBan, Reason: "spam", IsActive: true},
	}}
	cache := redrepo.NewRestrictionCacheRepo(client)
	svc := NewService(nil, store, nil, cache, nil, Config{CacheTTL: 10 * time.Second})

	for i := 0; i < 3; i++ {
		status, checkErr := svc.IsCurrentlyRestricted(context.Background(), 5)
		if checkErr != nil {
			t.Fatalf("check #%d: %v", i+1, checkErr)
		}
		if !status.Restricted {
			t.Fatalf("check #%d: expected restricted", i+1)
		}
	}
	if store.activeCalls != 1 {
		t.Fatalf("expected a single store lookup, got %d", store.activeCalls)
	}

	// After the TTL the store is consulted again.
	mr.FastForward(11 * time.Second)
	if _, err := svc.IsCurrentlyRestricted(context.Background(), 5); err != nil {
		t.Fatalf("check after ttl: %v", err)
	}
	if store.activeCalls != 2 {
		t.Fatalf("expected store lookup after ttl expiry, got %d", store.activeCalls)
	}
}

func TestCachedStatusExpiresMidTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	// A positive entry whose ban already ended must read as unrestricted
	// even while the cache entry itself is still live.
	cache := redrepo.NewRestrictionCacheRepo(client)
	past := time.Now().UTC().Add(-time.Minute)
	seed := redrepo.CachedStatus{Restricted: true, Type: enums.RestrictionTemporaryBan, Reason: "flood", EndDate: &past}
	if setErr := cache.Set(context.Background(), 5, seed, time.Minute); setErr != nil {
		t.Fatalf("seed cache: %v", setErr)
	}

	svc := NewService(nil, &storeStub{}, nil, cache, nil, Config{CacheTTL: time.Minute})
	status, err := svc.IsCurrentlyRestricted(context.Background(), 5)
	if err != nil {
		t.Fatalf("is currently restricted: %v", err)
	}
	if status.Restricted || status.Active != nil {
		t.Fatalf("expected expired ban to read unrestricted, got %+v", status)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	cache := redrepo.NewRestrictionCacheRepo(client)
	ctx := context.Background()

	if _, ok, getErr := cache.Get(ctx, 9); getErr != nil || ok {
		t.Fatalf("expected cache miss, ok=%v err=%v", ok, getErr)
	}

	end := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	status := redrepo.CachedStatus{Restricted: true, Type: enums.RestrictionTemporaryBan, Reason: "flood", EndDate: &end}
	if setErr := cache.Set(ctx, 9, status, time.Minute); setErr != nil {
		t.Fatalf("set: %v", setErr)
	}

	got, ok, getErr := cache.Get(ctx, 9)
	if getErr != nil || !ok {
		t.Fatalf("expected cache hit, ok=%v err=%v", ok, getErr)
	}
	if got.Type != enums.RestrictionTemporaryBan || got.Reason != "flood" || got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Fatalf("unexpected cached status: %+v", got)
	}

	if invErr := cache.Invalidate(ctx, 9); invErr != nil {
		t.Fatalf("invalidate: %v", invErr)
	}
	if _, ok, getErr := cache.Get(ctx, 9); getErr != nil || ok {
		t.Fatalf("expected miss after invalidate, ok=%v err=%v", ok, getErr)
	}
}

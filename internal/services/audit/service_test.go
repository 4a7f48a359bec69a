package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
)

type storeStub struct {
	entries []model.AuditEntry
	err     error
}

func (s *storeStub) Insert(_ context.Context, entry model.AuditEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestRecordPersistsEntryWithTimestamp(t *testing.T) {
	store := &storeStub{}
	svc := NewService(store, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }

	actor := int64(5)
	svc.Record(context.Background(), model.AuditEntry{
		ActorID:    &actor,
		Action:     ActionAccessDenied,
		TargetType: TargetContent,
		TargetID:   "17",
		Detail:     "edit denied",
	})

	if len(store.entries) != 1 {
		t.Fatalf("expected one stored entry, got %d", len(store.entries))
	}
	if store.entries[0].CreatedAt.IsZero() {
		t.Fatalf("expected timestamp to be stamped")
	}
	if store.entries[0].Action != ActionAccessDenied {
		t.Fatalf("unexpected action: %s", store.entries[0].Action)
	}
}

func TestRecordNeverPropagatesSinkFailure(t *testing.T) {
	store := &storeStub{err: errors.New("disk full")}
	svc := NewService(store, zap.NewNop())

	// Must not panic or surface the error.
	svc.Record(context.Background(), model.AuditEntry{Action: ActionLoginFailed})

	if len(store.entries) != 0 {
		t.Fatalf("expected no stored entries")
	}
}

func TestRecordHandlesNilStore(t *testing.T) {
	svc := NewService(nil, nil)
	svc.Record(context.Background(), model.AuditEntry{Action: ActionLoginFailed})
}

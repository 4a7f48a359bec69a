package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type sweeperStub struct {
	accountIDs []int64
	err        error
	calls      int
}

func (s *sweeperStub) DeactivateExpired(_ context.Context, _ time.Time) ([]int64, error) {
	s.calls++
	return s.accountIDs, s.err
}

type invalidatorStub struct {
	dropped []int64
	err     error
}

func (i *invalidatorStub) Invalidate(_ context.Context, accountID int64) error {
	if i.err != nil {
		return i.err
	}
	i.dropped = append(i.dropped, accountID)
	return nil
}

func TestRunInvalidatesCacheForSweptAccounts(t *testing.T) {
	sweeper := &sweeperStub{accountIDs: []int64{4, 9}}
	cache := &invalidatorStub{}
	job := New(sweeper, cache, time.Minute, zap.NewNop())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.calls)
	}
	if len(cache.dropped) != 2 || cache.dropped[0] != 4 || cache.dropped[1] != 9 {
		t.Fatalf("expected cache entries 4 and 9 dropped, got %v", cache.dropped)
	}
}

func TestRunPropagatesSweepError(t *testing.T) {
	sweeper := &sweeperStub{err: errors.New("connection refused")}
	job := New(sweeper, &invalidatorStub{}, time.Minute, zap.NewNop())

	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected sweep error to propagate")
	}
}

func TestRunToleratesCacheFailure(t *testing.T) {
	sweeper := &sweeperStub{accountIDs: []int64{4}}
	cache := &invalidatorStub{err: errors.New("redis down")}
	job := New(sweeper, cache, time.Minute, zap.NewNop())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("cache failures must not fail the sweep: %v", err)
	}
}

func TestRunWithoutSweeperIsNoop(t *testing.T) {
	job := New(nil, nil, 0, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
}

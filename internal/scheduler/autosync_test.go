package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	syncer "pmhub/server/internal/sync"
)

type countingSyncer struct {
	calls atomic.Int64
	err   error
}

func (c *countingSyncer) RunFullSync(context.Context) (syncer.Result, error) {
	c.calls.Add(1)
	return syncer.Result{ItemCount: 1}, c.err
}

func TestRunSyncsImmediatelyThenOnTicks(t *testing.T) {
	s := &countingSyncer{}
	a := New(s, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for s.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d sync calls before deadline", s.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestRunSurvivesFailuresAndBusySignals(t *testing.T) {
	for _, err := range []error{errors.New("network down"), syncer.ErrSyncInProgress} {
		s := &countingSyncer{err: err}
		a := New(s, 5*time.Millisecond, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			a.Run(ctx)
			close(done)
		}()

		deadline := time.After(2 * time.Second)
		for s.calls.Load() < 2 {
			select {
			case <-deadline:
				t.Fatalf("loop stopped after error %v", err)
			case <-time.After(2 * time.Millisecond):
			}
		}
		cancel()
		<-done
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	a := New(&countingSyncer{}, 0, nil)
	if a.interval != 5*time.Minute {
		t.Errorf("interval = %v, want 5m default", a.interval)
	}
}

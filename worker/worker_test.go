package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"admin-service/events"
	"admin-service/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	calls atomic.Int32
	err   error
}

func (r *countingRecorder) RecordSnapshot(context.Context) error {
	r.calls.Add(1)
	return r.err
}

type fakeSubscriber struct {
	mu           sync.Mutex
	handlers     map[string]func([]byte)
	unsubscribed bool
	err          error
}

func (s *fakeSubscriber) Subscribe(subject string, handle func([]byte)) (func() error, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = map[string]func([]byte){}
	}
	s.handlers[subject] = handle
	return func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.unsubscribed = true
		return nil
	}, nil
}

func (s *fakeSubscriber) deliver(subject string) {
	s.mu.Lock()
	h := s.handlers[subject]
	s.mu.Unlock()
	h(nil)
}

func TestSnapshotWorker_InitialAndTicks(t *testing.T) {
	rec := &countingRecorder{}
	w := NewSnapshotWorker(rec, 10*time.Millisecond, nil, logger.NewNop())
	require.NoError(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool { return rec.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	w.Stop()

	stopped := rec.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, rec.calls.Load())
}

func TestSnapshotWorker_TriggeredOverSubscription(t *testing.T) {
	rec := &countingRecorder{err: errors.New("provider down")}
	sub := &fakeSubscriber{}
	w := NewSnapshotWorker(rec, time.Hour, sub, logger.NewNop())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Eventually(t, func() bool { return rec.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	sub.deliver(events.SubjectSnapshotRequest)
	assert.Eventually(t, func() bool { return rec.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestSnapshotWorker_StopUnsubscribes(t *testing.T) {
	sub := &fakeSubscriber{}
	w := NewSnapshotWorker(&countingRecorder{}, time.Hour, sub, logger.NewNop())
	require.NoError(t, w.Start(context.Background()))
	w.Stop()

	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.True(t, sub.unsubscribed)
}

func TestSnapshotWorker_SubscribeError(t *testing.T) {
	w := NewSnapshotWorker(&countingRecorder{}, time.Hour, &fakeSubscriber{err: errors.New("nats down")}, logger.NewNop())
	assert.Error(t, w.Start(context.Background()))
}

// Package worker runs background jobs of the admin service.
package worker

import (
	"context"
	"sync"
	"time"

	"admin-service/events"
	"admin-service/logger"
)

const snapshotTimeout = 30 * time.Second

// Recorder stores one storage usage snapshot.
type Recorder interface {
	RecordSnapshot(ctx context.Context) error
}

// Subscriber delivers messages published on a subject.
type Subscriber interface {
	Subscribe(subject string, handle func(data []byte)) (func() error, error)
}

// SnapshotWorker records storage usage on a fixed interval and whenever a
// snapshot request arrives over NATS.
type SnapshotWorker struct {
	recorder Recorder
	interval time.Duration
	sub      Subscriber
	log      logger.Logger

	trigger     chan struct{}
	cancelFunc  context.CancelFunc
	unsubscribe func() error
	wg          sync.WaitGroup
}

// NewSnapshotWorker creates a worker. sub may be nil when NATS is not
// configured.
func NewSnapshotWorker(recorder Recorder, interval time.Duration, sub Subscriber, log logger.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		recorder: recorder,
		interval: interval,
		sub:      sub,
		log:      log,
		trigger:  make(chan struct{}, 1),
	}
}

func (w *SnapshotWorker) Start(ctx context.Context) error {
	w.log.Info("Starting snapshot worker", logger.Duration("interval", w.interval))

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	if w.sub != nil {
		unsubscribe, err := w.sub.Subscribe(events.SubjectSnapshotRequest, func([]byte) {
			w.Trigger()
		})
		if err != nil {
			cancel()
			return err
		}
		w.unsubscribe = unsubscribe
		w.log.Info("Subscribed to snapshot requests", logger.String("subject", events.SubjectSnapshotRequest))
	}

	w.wg.Add(1)
	go w.startScheduler(workerCtx)
	return nil
}

// Trigger requests a snapshot without waiting for the next tick. Requests
// arriving while one is pending are coalesced.
func (w *SnapshotWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the scheduler and waits for a running snapshot to finish.
func (w *SnapshotWorker) Stop() {
	w.log.Info("Stopping snapshot worker")
	if w.unsubscribe != nil {
		if err := w.unsubscribe(); err != nil {
			w.log.Warn("Failed to unsubscribe", logger.Error(err))
		}
	}
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()
}

func (w *SnapshotWorker) startScheduler(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Initial snapshot
	w.snapshot(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Snapshot scheduler stopped")
			return
		case <-ticker.C:
			w.snapshot(ctx)
		case <-w.trigger:
			w.snapshot(ctx)
		}
	}
}

func (w *SnapshotWorker) snapshot(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	if err := w.recorder.RecordSnapshot(ctx); err != nil {
		w.log.Error("Failed to record storage snapshot", logger.Error(err))
	}
}

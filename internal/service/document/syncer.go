package document

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/pkg/log"
	"github.com/sandevgo/tuskthread/pkg/retry"
)

const (
	defaultSyncInterval = 10 * time.Second
	shutdownFlushTime   = 5 * time.Second
)

// Syncer replays queued remote writes in the background.
type Syncer struct {
	queue    *Queue
	remote   core.DocumentBackend
	retrier  *retry.Retrier
	interval time.Duration

	mu   sync.Mutex
	done chan struct{}
}

func NewSyncer(cfg core.DocumentConfig, queue *Queue, remote core.DocumentBackend) *Syncer {
	interval := cfg.GetSyncInterval()
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &Syncer{
		queue:  queue,
		remote: remote,
		retrier: retry.NewRetrier(&retry.Config{
			MaxRetries:    3,
			BackoffFactor: 2,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			Jitter:        50 * time.Millisecond,
		}),
		interval: interval,
	}
}

func (s *Syncer) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx).With().Str("component", "document_syncer").Logger()
	logger.Info().Msg("starting document syncer")

	s.mu.Lock()
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down document syncer")
			return nil
		case <-ticker.C:
			if n := s.Flush(ctx); n > 0 {
				logger.Warn().Int("pending", n).Msg("remote sync incomplete")
			}
		}
	}
}

// Shutdown waits for the ticker loop to stop and makes a last bounded
// attempt to empty the queue. The loop stops when its Start context ends.
func (s *Syncer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTime)
	defer cancel()

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return errors.New("document syncer did not stop in time")
		}
	}

	if n := s.Flush(ctx); n > 0 {
		log.FromCtx(ctx).Warn().Int("pending", n).Msg("Entries left unsynced at shutdown")
	}
	return nil
}

// Flush sends queued entries in order and returns how many are still pending.
// The first entry that keeps failing stops the round; it and everything after
// it go back to the queue. Entries the backend rejects outright are dropped.
func (s *Syncer) Flush(ctx context.Context) int {
	if s.remote == nil {
		return 0
	}

	items := s.queue.Drain()
	for i, item := range items {
		err := s.retrier.Do(ctx, func() error {
			err := s.remote.Append(ctx, item.Key, item.Entry)
			if errors.Is(err, core.ErrInvalidRequest) {
				return retry.Permanent(err)
			}
			return err
		})
		if errors.Is(err, core.ErrInvalidRequest) {
			log.FromCtx(ctx).Error().Err(err).
				Str("document", item.Key).
				Int64("seq", item.Entry.Seq).
				Msg("Remote rejected entry, dropping")
			continue
		}
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).
				Str("document", item.Key).
				Int64("seq", item.Entry.Seq).
				Str("error_kind", core.ErrorKind(core.ErrStorageFault)).
				Msg("Remote sync failed")
			s.queue.Requeue(items[i:])
			break
		}
	}
	return s.queue.Len()
}

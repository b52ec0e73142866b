package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hyunwoo-kim/docchat/internal/config"
	"github.com/hyunwoo-kim/docchat/internal/domain"
)

// Tracker records usage off the request path. Records flow through a
// bounded channel to a single writer goroutine; when the channel is
// full the record is dropped and counted, never blocking a request.
type Tracker struct {
	repo         domain.UsageRepository
	records      chan domain.UsageRecord
	flushTimeout time.Duration
	logger       zerolog.Logger

	mu      sync.Mutex
	dropped int64

	closeMu sync.RWMutex
	closed  bool

	done chan struct{}
	once sync.Once
}

// NewTracker creates a tracker and starts its writer goroutine.
func NewTracker(repo domain.UsageRepository, cfg config.UsageConfig, logger zerolog.Logger) *Tracker {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 256
	}
	flushTimeout := cfg.FlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = 5 * time.Second
	}

	t := &Tracker{
		repo:         repo,
		records:      make(chan domain.UsageRecord, bufferSize),
		flushTimeout: flushTimeout,
		logger:       logger,
		done:         make(chan struct{}),
	}

	go t.run()
	return t
}

// Record enqueues a usage record without blocking. Missing IDs and
// timestamps are filled in here so callers only set what they know.
func (t *Tracker) Record(record domain.UsageRecord) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	// The read lock keeps Close from closing the channel mid-send.
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		return
	}

	select {
	case t.records <- record:
	default:
		t.mu.Lock()
		t.dropped++
		dropped := t.dropped
		t.mu.Unlock()

		t.logger.Warn().
			Str("operation", record.Operation).
			Int64("dropped_total", dropped).
			Msg("Usage buffer full, dropping record")
	}
}

// Dropped returns the number of records dropped since startup.
func (t *Tracker) Dropped() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Close stops accepting records and drains the buffer within the flush
// timeout.
func (t *Tracker) Close() {
	t.once.Do(func() {
		t.closeMu.Lock()
		t.closed = true
		close(t.records)
		t.closeMu.Unlock()
		select {
		case <-t.done:
		case <-time.After(t.flushTimeout):
			t.logger.Warn().Msg("Usage tracker flush timed out")
		}
	})
}

func (t *Tracker) run() {
	defer close(t.done)

	for record := range t.records {
		t.write(record)
	}
}

func (t *Tracker) write(record domain.UsageRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), t.flushTimeout)
	defer cancel()

	if err := t.repo.Insert(ctx, []domain.UsageRecord{record}); err != nil {
		t.logger.Error().
			Err(err).
			Str("operation", record.Operation).
			Msg("Failed to persist usage record")
	}
}

package bank

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Warmer refreshes a cached bank payload.
type Warmer interface {
	Warm(ctx context.Context, class string) error
}

// Prefetcher warms the bank cache for classes that drafts are about to search.
type Prefetcher struct {
	warmer    Warmer
	queue     chan string
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
	stopOnce  sync.Once
}

func NewPrefetcher(warmer Warmer, queueSize int, logger zerolog.Logger, timeout time.Duration) *Prefetcher {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	if queueSize <= 0 {
		queueSize = 32
	}
	return &Prefetcher{
		warmer:    warmer,
		queue:     make(chan string, queueSize),
		logger:    logger.With().Str("component", "bank_prefetch").Logger(),
		timeout:   timeout,
		shutdownC: make(chan struct{}),
	}
}

// Enqueue schedules class for warming. It never blocks; a full queue drops the request.
func (w *Prefetcher) Enqueue(class string) bool {
	if w == nil || class == "" {
		return false
	}
	select {
	case w.queue <- class:
		return true
	default:
		w.logger.Debug().Str("class", class).Msg("prefetch queue full")
		return false
	}
}

func (w *Prefetcher) Run() {
	for {
		select {
		case <-w.shutdownC:
			w.logger.Info().Msg("bank prefetcher stopping")
			return
		case class := <-w.queue:
			w.handle(class)
		}
	}
}

func (w *Prefetcher) handle(class string) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.warmer.Warm(ctx, class); err != nil {
		w.logger.Warn().Err(err).Str("class", class).Msg("prefetch failed")
	}
}

// Stop ends Run. Repeated calls are no-ops.
func (w *Prefetcher) Stop() {
	w.stopOnce.Do(func() { close(w.shutdownC) })
}

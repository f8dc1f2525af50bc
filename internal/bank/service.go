package bank

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/failure"
	"github.com/gokatarajesh/paper-builder/internal/metrics"
	"github.com/gokatarajesh/paper-builder/internal/paper"
)

// Service fetches bank payloads and resolves candidate pools from them.
type Service struct {
	source  Source
	metrics *metrics.Metrics
	logger  zerolog.Logger
	timeout time.Duration
}

type ServiceOptions struct {
	FetchTimeout time.Duration
}

func NewService(source Source, m *metrics.Metrics, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Service{
		source:  source,
		metrics: m,
		logger:  logger.With().Str("component", "bank").Logger(),
		timeout: opts.FetchTimeout,
	}
}

// Resolve fetches the bank for q.Class and extracts its candidate pool.
func (s *Service) Resolve(ctx context.Context, q Query) ([]paper.Question, error) {
	questions, err := s.resolve(ctx, q)
	s.metrics.PoolResolutions.WithLabelValues(string(q.Category), metrics.Outcome(err)).Inc()

	event := s.logger.Debug()
	if err != nil && !failure.Is(err, failure.KindNotFound) && !failure.Is(err, failure.KindEmpty) {
		event = s.logger.Warn().Err(err)
	}
	event.
		Str("class", q.Class).
		Str("subject", q.Subject).
		Str("category", string(q.Category)).
		Str("source", q.Source).
		Int("candidates", len(questions)).
		Msg("pool resolved")
	return questions, err
}

func (s *Service) resolve(ctx context.Context, q Query) ([]paper.Question, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	b, err := s.Load(ctx, q.Class)
	if err != nil {
		return nil, err
	}
	return Resolve(b, q)
}

// Load fetches and parses the bank for class.
func (s *Service) Load(ctx context.Context, class string) (*Bank, error) {
	const op = "bank.load"
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	payload, err := s.source.Fetch(ctx, class)
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.BankFetch.WithLabelValues(result).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, failure.Transport(op, err)
	}

	b, err := Parse(payload)
	if err != nil {
		return nil, failure.Unexpected(op, err)
	}
	return b, nil
}

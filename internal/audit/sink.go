package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vyrodovalexey/edgegate/internal/cache"
	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/retry"
)

const (
	tracerName = "edgegate/audit"

	// maxKeyCollisions bounds how many taken ids a write skips.
	maxKeyCollisions = 16
)

// Sink writes violations to the key-value store in the background.
type Sink struct {
	store        cache.Cache
	prefix       string
	ttl          time.Duration
	writeTimeout time.Duration
	retry        retry.Config
	ids          *IDGenerator
	logger       observability.Logger
	metrics      *Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan *Violation
	done   chan struct{}
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Sink) {
		s.metrics = metrics
	}
}

// WithIDGenerator replaces the id generator.
func WithIDGenerator(ids *IDGenerator) Option {
	return func(s *Sink) {
		s.ids = ids
	}
}

// NewSink creates a sink writing to store and starts its worker.
func NewSink(cfg *config.AuditConfig, store cache.Cache, opts ...Option) *Sink {
	if cfg == nil {
		cfg = &config.DefaultConfig().Audit
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1
	}

	s := &Sink{
		store:        store,
		prefix:       cfg.KeyPrefix,
		ttl:          cfg.TTL.Duration(),
		writeTimeout: cfg.WriteTimeout.Duration(),
		retry:        retry.Config{MaxRetries: cfg.MaxRetries},
		ids:          NewIDGenerator(),
		logger:       observability.NopLogger(),
		queue:        make(chan *Violation, bufferSize),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics("edgegate", nil)
	}

	go s.run()
	return s
}

// Record assigns an id and timestamp to v and queues it. It never blocks.
func (s *Sink) Record(_ context.Context, v *Violation) {
	id, now := s.ids.Next()
	v.ID = strconv.FormatInt(id, 10)
	if v.Timestamp.IsZero() {
		v.Timestamp = now.UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.drop(v, "sink closed")
		return
	}

	select {
	case s.queue <- v:
		s.metrics.queueDepth.Set(float64(len(s.queue)))
	default:
		s.drop(v, "queue full")
	}
}

func (s *Sink) drop(v *Violation, why string) {
	s.metrics.recordsTotal.WithLabelValues(outcomeDropped).Inc()
	s.logger.Warn("compliance violation dropped",
		observability.String("reason", why),
		observability.String("id", v.ID),
		observability.String("path", v.Path),
	)
}

func (s *Sink) run() {
	defer close(s.done)
	for v := range s.queue {
		s.metrics.queueDepth.Set(float64(len(s.queue)))
		if err := s.write(v); err != nil {
			s.metrics.recordsTotal.WithLabelValues(outcomeFailed).Inc()
			s.logger.Error("compliance audit write failed",
				observability.String("id", v.ID),
				observability.String("path", v.Path),
				observability.String("reason", v.Reason),
				observability.Error(err),
			)
			continue
		}
		s.metrics.recordsTotal.WithLabelValues(outcomeWritten).Inc()
	}
}

func (s *Sink) write(v *Violation) error {
	ctx, span := otel.Tracer(tracerName).Start(context.Background(), "audit.Write")
	defer span.End()

	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}

	err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.put(ctx, v)
	}, func(attempt int, err error, backoff time.Duration) {
		s.logger.Debug("retrying compliance audit write",
			observability.String("id", v.ID),
			observability.Int("attempt", attempt),
			observability.Duration("backoff", backoff),
			observability.Error(err),
		)
	})
	span.SetAttributes(attribute.String("audit.key", s.prefix+v.ID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %w", ErrAuditWriteFailed, err)
	}
	return nil
}

// put writes v under a key no other record holds. Another gateway
// sharing the store may have taken the same millisecond; the record then
// moves to the next free id instead of overwriting.
func (s *Sink) put(ctx context.Context, v *Violation) error {
	for attempt := 0; attempt < maxKeyCollisions; attempt++ {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		stored, err := s.store.SetNX(ctx, s.prefix+v.ID, data, s.ttl)
		if err != nil {
			return err
		}
		if stored {
			return nil
		}
		s.metrics.collisionsTotal.Inc()
		id, _ := s.ids.Next()
		v.ID = strconv.FormatInt(id, 10)
	}
	return ErrKeyCollision
}

// Recent returns up to limit stored violations, newest first. A limit <= 0
// returns all of them.
func (s *Sink) Recent(ctx context.Context, limit int) ([]*Violation, error) {
	keys, err := s.store.Keys(ctx, s.prefix, 0)
	if err != nil {
		return nil, err
	}

	// Ids of equal length sort numerically; sort by length first so the
	// order stays correct when epoch-ms gains a digit.
	sort.Slice(keys, func(i, j int) bool {
		a, b := strings.TrimPrefix(keys[i], s.prefix), strings.TrimPrefix(keys[j], s.prefix)
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a > b
	})

	out := make([]*Violation, 0, len(keys))
	for _, key := range keys {
		if limit > 0 && len(out) >= limit {
			break
		}
		data, err := s.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, cache.ErrCacheMiss) {
				continue
			}
			return nil, err
		}
		var v Violation
		if err := json.Unmarshal(data, &v); err != nil {
			s.logger.Warn("skipping malformed audit record",
				observability.String("key", key),
				observability.Error(err),
			)
			continue
		}
		out = append(out, &v)
	}
	return out, nil
}

// Close stops accepting violations and waits until the queue is written or
// ctx is done.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Recorder = (*Sink)(nil)

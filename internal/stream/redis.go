package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nao1215/jsrecon/internal/model"
)

const (
	// DefaultStreamKey is the stream crawl events are appended to.
	DefaultStreamKey = "jsrecon:events"

	// DefaultMaxLen caps the stream length (approximate trimming).
	DefaultMaxLen = 100000
)

// ErrMissingAddr is returned when no Redis address is configured.
var ErrMissingAddr = errors.New("redis address is required")

// xadder is the part of the Redis client the reporter uses.
type xadder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisReporter appends every crawl event to a Redis stream.
// Findings are redacted before they leave the process: secret values are
// masked and only fingerprints identify them.
type RedisReporter struct {
	client    xadder
	closer    func() error
	streamKey string
	maxLen    int64
	logger    *slog.Logger

	streamed atomic.Int64
	failed   atomic.Int64
}

// Option configures a RedisReporter.
type Option func(*RedisReporter)

// WithStreamKey sets the stream key.
func WithStreamKey(key string) Option {
	return func(r *RedisReporter) {
		if key != "" {
			r.streamKey = key
		}
	}
}

// WithMaxLen sets the approximate maximum stream length. Zero disables trimming.
func WithMaxLen(n int64) Option {
	return func(r *RedisReporter) {
		if n >= 0 {
			r.maxLen = n
		}
	}
}

// WithLogger sets the logger used for failed writes.
func WithLogger(logger *slog.Logger) Option {
	return func(r *RedisReporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Dial connects to Redis at addr and returns a reporter writing to it.
// The connection is checked with PING.
func Dial(ctx context.Context, addr, password string, opts ...Option) (*RedisReporter, error) {
	if addr == "" {
		return nil, ErrMissingAddr
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	r := newReporter(client, opts...)
	r.closer = client.Close
	return r, nil
}

func newReporter(client xadder, opts ...Option) *RedisReporter {
	r := &RedisReporter{
		client:    client,
		streamKey: DefaultStreamKey,
		maxLen:    DefaultMaxLen,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report implements model.Reporter. Write failures are logged and counted,
// never returned to the crawl.
func (r *RedisReporter) Report(ctx context.Context, ev model.Event) {
	values, err := eventValues(ev)
	if err != nil {
		r.failed.Add(1)
		r.logger.WarnContext(ctx, "failed to encode event", "event", string(ev.Type), "error", err)
		return
	}

	args := &redis.XAddArgs{
		Stream: r.streamKey,
		Values: values,
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if _, err := r.client.XAdd(ctx, args).Result(); err != nil {
		r.failed.Add(1)
		r.logger.WarnContext(ctx, "XADD failed", "stream", r.streamKey, "event", string(ev.Type), "error", err)
		return
	}
	r.streamed.Add(1)
}

// Streamed returns the number of events written to the stream.
func (r *RedisReporter) Streamed() int64 {
	return r.streamed.Load()
}

// Failed returns the number of events that could not be written.
func (r *RedisReporter) Failed() int64 {
	return r.failed.Load()
}

// Close closes the underlying connection if the reporter owns one.
func (r *RedisReporter) Close() error {
	if r.closer != nil {
		return r.closer()
	}
	return nil
}

// eventValues flattens an event into stream entry fields.
func eventValues(ev model.Event) (map[string]any, error) {
	values := map[string]any{
		"type":      string(ev.Type),
		"target":    ev.Target,
		"url":       ev.URL,
		"depth":     strconv.Itoa(ev.Depth),
		"count":     strconv.Itoa(ev.Count),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if ev.Err != nil {
		values["error"] = ev.Err.Error()
	}
	if ev.Finding != nil {
		finding := ev.Finding.Redacted()
		data, err := json.Marshal(finding)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize finding: %w", err)
		}
		values["kind"] = string(finding.Kind)
		values["source"] = finding.Source
		values["finding"] = string(data)
	}
	return values, nil
}

// Package replay feeds recorded ticks (one GameData json object per line) into
// a sink at a fixed rate.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

const (
	DefaultRate   = 10 // ticks per second
	MaxRate       = 10_000
	maxLineLength = 1 << 20
)

var ErrSinkRejected = errors.New("tick rejected by sink")

// Sink receives the replayed ticks
type Sink interface {
	Send(ctx context.Context, d *model.GameData) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, d *model.GameData) error

func (f SinkFunc) Send(ctx context.Context, d *model.GameData) error {
	return f(ctx, d)
}

// TickerSink sends ticks to an in-process session controller
func TickerSink(tick func(*model.GameData) bool) Sink {
	return SinkFunc(func(_ context.Context, d *model.GameData) error {
		if !tick(d) {
			return ErrSinkRejected
		}
		return nil
	})
}

// NatsSink publishes ticks to subject
func NatsSink(conn *nats.Conn, subject string) Sink {
	return SinkFunc(func(_ context.Context, d *model.GameData) error {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		return conn.Publish(subject, data)
	})
}

type Stats struct {
	Sent     int
	Skipped  int // lines which could not be decoded
	Rejected int // ticks the sink did not accept
}

type (
	Option   func(*Replayer)
	Replayer struct {
		sink Sink
		rate int
		l    *log.Logger
	}
)

// WithRate sets the ticks per second. 0 means as fast as possible, rates
// above MaxRate are capped.
func WithRate(arg int) Option {
	return func(r *Replayer) {
		r.rate = arg
	}
}

func WithLogger(arg *log.Logger) Option {
	return func(r *Replayer) {
		r.l = arg
	}
}

func New(sink Sink, opts ...Option) *Replayer {
	ret := &Replayer{
		sink: sink,
		rate: DefaultRate,
		l:    log.Default().Named("replay"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Run sends every tick read from in until in is exhausted or ctx is done.
// Empty lines and lines starting with # are ignored, undecodable lines are
// skipped.
func (r *Replayer) Run(ctx context.Context, in io.Reader) (Stats, error) {
	var stats Stats
	var ticker *time.Ticker
	if d := r.interval(); d > 0 {
		ticker = time.NewTicker(d)
		defer ticker.Stop()
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var d model.GameData
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			r.l.Warn("skipping invalid line", log.Int("line", lineNo), log.ErrorField(err))
			stats.Skipped++
			continue
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := r.sink.Send(ctx, &d); err != nil {
			if !errors.Is(err, ErrSinkRejected) {
				return stats, fmt.Errorf("line %d: %w", lineNo, err)
			}
			stats.Rejected++
			continue
		}
		stats.Sent++
	}
	return stats, scanner.Err()
}

// interval is the pause between two ticks, 0 for no pause
func (r *Replayer) interval() time.Duration {
	if r.rate <= 0 {
		return 0
	}
	return time.Second / time.Duration(min(r.rate, MaxRate))
}

// ValidateRate checks a rate given by the user
func ValidateRate(rate int) error {
	if rate < 0 || rate > MaxRate {
		return fmt.Errorf("rate %d out of range 0..%d", rate, MaxRate)
	}
	return nil
}

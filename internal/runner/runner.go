// Package runner replays decoded events through one compiled script.
//
// One producer decodes inputs in order and paces them with the rate limiter.
// A pool of workers runs the shared script, each worker owning the events it
// picks up. A single writer restores input order before printing, so the
// output does not depend on the number of workers.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mfelsche/tremor-runtime/internal/clock"
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/internal/ratelimit"
	"github.com/mfelsche/tremor-runtime/internal/report"
	"github.com/mfelsche/tremor-runtime/pkg/script"
)

var ErrDecode = errors.New("cannot decode event")

// Input is one named event stream.
type Input struct {
	Name   string
	Reader io.Reader
}

// Options configures a Runner. The zero value runs one worker over JSON
// input and prints emitted events as text.
type Options struct {
	Workers      int
	InputFormat  string
	OutputFormat string
	// WithMeta prints the $ metadata alongside emitted events.
	WithMeta bool
	// Limiter paces the producer. Nil means unlimited.
	Limiter *ratelimit.Limiter
	Context script.Context
	Logger  *slog.Logger
	// BufferSize is the capacity of the channels between stages.
	BufferSize int
}

type Runner struct {
	script  *script.Script
	opts    Options
	logger  *slog.Logger
	encoder encoder
}

// New creates a Runner for s.
func New(s *script.Script, opts Options) (*Runner, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(0, 1)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := checkInputFormat(opts.InputFormat); err != nil {
		return nil, err
	}
	enc, err := newEncoder(opts.OutputFormat, opts.WithMeta)
	if err != nil {
		return nil, err
	}
	return &Runner{
		script:  s,
		opts:    opts,
		logger:  logger,
		encoder: enc,
	}, nil
}

type job struct {
	seq   int64
	input string
	index int
	event *script.Event
}

type result struct {
	job
	outcome script.Outcome
}

// Run processes every input in order and writes outcomes to out. Runtime
// errors of single events are counted and logged, not returned; the error
// is reserved for undecodable input, write failures and cancellation.
func (r *Runner) Run(ctx context.Context, inputs []Input, out io.Writer) (report.RunStats, error) {
	var stats report.RunStats
	start := time.Now()

	jobs := make(chan job, r.opts.BufferSize)
	results := make(chan result, r.opts.BufferSize)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		return r.produce(ctx, inputs, jobs)
	})

	var workers errgroup.Group
	for range r.opts.Workers {
		workers.Go(func() error {
			return r.work(ctx, jobs, results)
		})
	}
	g.Go(func() error {
		err := workers.Wait()
		close(results)
		return err
	})

	g.Go(func() error {
		return r.write(ctx, results, out, &stats)
	})

	err := g.Wait()
	stats.Duration = time.Since(start)
	r.logger.Debug("run finished",
		"events", stats.Events,
		"emitted", stats.Emitted,
		"dropped", stats.Dropped,
		"errors", stats.Errors,
		"duration", stats.Duration)
	return stats, err
}

func (r *Runner) produce(ctx context.Context, inputs []Input, jobs chan<- job) error {
	var seq int64
	for _, in := range inputs {
		dec, err := newDecoder(r.opts.InputFormat, in.Reader)
		if err != nil {
			return err
		}
		r.logger.Debug("reading input", "input", in.Name, "format", r.opts.InputFormat)

		for index := 0; ; index++ {
			v, err := dec.Decode()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("%w: %s event %d: %w", ErrDecode, in.Name, index, err)
			}
			if err := r.opts.Limiter.Wait(ctx); err != nil {
				return err
			}

			j := job{
				seq:   seq,
				input: in.Name,
				index: index,
				event: &script.Event{Value: v, IngestNS: clock.Nanos(), Origin: in.Name},
			}
			select {
			case jobs <- j:
			case <-ctx.Done():
				return ctx.Err()
			}
			seq++
		}
	}
	return nil
}

func (r *Runner) work(ctx context.Context, jobs <-chan job, results chan<- result) error {
	for j := range jobs {
		res := result{job: j, outcome: r.script.Run(j.event, r.opts.Context)}
		select {
		case results <- res:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// write drains results and prints them in sequence order.
func (r *Runner) write(ctx context.Context, results <-chan result, out io.Writer, stats *report.RunStats) error {
	pending := make(map[int64]result)
	var next int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				return nil
			}
			pending[res.seq] = res
			for {
				ready, found := pending[next]
				if !found {
					break
				}
				delete(pending, next)
				next++
				if err := r.emit(ready, out, stats); err != nil {
					return err
				}
			}
		}
	}
}

func (r *Runner) emit(res result, out io.Writer, stats *report.RunStats) error {
	stats.Add(res.outcome)
	if res.outcome.Kind == script.Error {
		r.logError(res)
	}
	if err := r.encoder.encode(out, res); err != nil {
		return fmt.Errorf("write %s event %d: %w", res.input, res.index, err)
	}
	return nil
}

func (r *Runner) logError(res result) {
	attrs := []any{
		"input", res.input,
		"event", res.index,
	}
	var diagnostic diagnostics.Diagnostic
	if errors.As(res.outcome.Err, &diagnostic) {
		span := diagnostic.Span()
		attrs = append(attrs,
			"code", diagnostic.Code(),
			"line", span.Start.Line,
			"column", span.Start.Column,
			"error", diagnostic.Message())
	} else {
		attrs = append(attrs, "error", res.outcome.Err)
	}
	r.logger.Warn("event failed", attrs...)
}

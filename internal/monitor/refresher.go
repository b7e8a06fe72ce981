package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/internal/timeseries"
	"github.com/HerbHall/wardwatch/pkg/models"
	"github.com/HerbHall/wardwatch/pkg/plugin"
)

// TickResult summarizes one refresh pass.
type TickResult struct {
	Seq       uint64
	Refreshed int // results applied to the cache
	Failed    int // reads that errored or timed out
	Discarded int // results dropped at apply time
	Empty     int // reads that returned no samples
}

// Refresher re-reads every active bed's tail on a fixed period and swaps it
// into the registry cache. Reads run on a bounded worker pool and each one
// is abandoned when it exceeds the per-bed timeout, so a hung source call
// cannot hold up the next tick. Failures leave that bed's cache as it was.
type Refresher struct {
	registry  *Registry
	source    timeseries.Source
	interval  time.Duration
	timeout   time.Duration
	workers   int
	publisher plugin.EventBus
	logger    *zap.Logger

	seq  atomic.Uint64
	tick sync.Mutex // one tick at a time, RunOnce included

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefresher builds a refresher for reg. publisher may be nil.
func NewRefresher(reg *Registry, source timeseries.Source, cfg MonitorConfig, publisher plugin.EventBus, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		registry:  reg,
		source:    source,
		interval:  cfg.RefreshInterval,
		timeout:   cfg.RefreshTimeout,
		workers:   max(cfg.MaxWorkers, 1),
		publisher: publisher,
		logger:    logger,
	}
}

// Start runs a tick immediately and then once per interval until Stop is
// called or ctx ends. Calling Start on a running refresher does nothing.
func (f *Refresher) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return
	}
	ctx, f.cancel = context.WithCancel(ctx)
	f.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		f.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.RunOnce(ctx)
			}
		}
	}(f.done)
}

// Stop cancels the loop and waits for the in-flight tick. Reads that are
// still blocked in the source are abandoned rather than waited on.
func (f *Refresher) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (f *Refresher) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

// RunOnce performs a single tick synchronously.
func (f *Refresher) RunOnce(ctx context.Context) TickResult {
	f.tick.Lock()
	defer f.tick.Unlock()

	start := time.Now()
	seq := f.seq.Add(1)
	res := TickResult{Seq: seq}
	targets := f.registry.activeTargets()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, f.workers)
	)

dispatch:
	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(t target) {
			defer wg.Done()
			defer func() { <-sem }()
			o := f.refreshBed(ctx, t, seq, start)
			mu.Lock()
			res.record(o)
			mu.Unlock()
		}(t)
	}
	wg.Wait()

	refreshTicksTotal.Inc()
	refreshDuration.Observe(time.Since(start).Seconds())
	if res.Failed > 0 {
		f.logger.Debug("refresh tick finished with failures",
			zap.Uint64("seq", res.Seq),
			zap.Int("refreshed", res.Refreshed),
			zap.Int("failed", res.Failed),
		)
	}
	return res
}

type outcome int

const (
	outcomeRefreshed outcome = iota
	outcomeFailed
	outcomeDiscarded
	outcomeEmpty
)

func (r *TickResult) record(o outcome) {
	switch o {
	case outcomeRefreshed:
		r.Refreshed++
	case outcomeFailed:
		r.Failed++
	case outcomeDiscarded:
		r.Discarded++
	case outcomeEmpty:
		r.Empty++
	}
}

// refreshBed reads one bed's tail and applies it. An empty tail leaves
// the cache as it was.
func (f *Refresher) refreshBed(ctx context.Context, t target, seq uint64, at time.Time) outcome {
	samples, err := f.readTail(ctx, t.bedID)
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		refreshFailuresTotal.WithLabelValues(reason).Inc()
		f.logger.Warn("refresh failed, keeping cached samples",
			zap.String("bed_id", t.bedID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return outcomeFailed
	}
	if len(samples) == 0 {
		return outcomeEmpty
	}
	bed, ok := f.registry.apply(t, seq, samples, at)
	if !ok {
		refreshDiscardedTotal.Inc()
		return outcomeDiscarded
	}

	if f.publisher != nil {
		f.publisher.PublishAsync(context.WithoutCancel(ctx), plugin.Event{
			Topic:     TopicVitalsRefreshed,
			Source:    "monitoring",
			Timestamp: at,
			Payload: VitalsRefreshedEvent{
				BedID:      bed.BedID,
				PatientID:  bed.PatientID,
				Current:    bed.CurrentVitals(),
				SampleSize: len(bed.RecentSamples),
				UpdatedAt:  at,
			},
		})
	}
	return outcomeRefreshed
}

type readResult struct {
	samples []models.VitalSample
	err     error
}

// readTail bounds one source read by the per-bed timeout. The read runs on
// its own goroutine; on timeout its eventual result is dropped.
func (f *Refresher) readTail(ctx context.Context, bedID string) ([]models.VitalSample, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	ch := make(chan readResult, 1)
	go func() {
		s, err := f.source.ReadTail(ctx, bedID, f.registry.capacity)
		ch <- readResult{samples: s, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("read tail %s: %w", bedID, ctx.Err())
	case r := <-ch:
		return r.samples, r.err
	}
}

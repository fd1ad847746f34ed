package crawler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayfilter/crawler/crawler/resource"
)

const (
	minConcurrency = 1

	initialConcurrency = 3
	initialTimeoutFactor = 1.0

	minTimeoutFactor = 0.7
	maxTimeoutFactor = 2.0

	highLoadThreshold = 80.0
	lowLoadThreshold  = 50.0
	lowRAMThreshold   = 60.0

	timeoutFactorStep = 0.1

	resetEveryNUpdates = 11

	emptyBatchSleep  = 10 * time.Second
	batchCycleSleep  = 3 * time.Second
	outerErrorSleep  = 10 * time.Second
)

// Scheduler is the main loop: it samples host resources, adjusts
// concurrency and timeout scaling, claims a batch of URLs, fans workers
// out over the batch, and repeats.
type Scheduler struct {
	settings *Settings
	worker   *Worker

	concurrencyLevel int
	timeoutFactor    float64
	updateCount      int
}

// NewScheduler builds a Scheduler bound to settings.
func NewScheduler(settings *Settings) *Scheduler {
	return &Scheduler{
		settings:         settings,
		worker:           NewWorker(settings),
		concurrencyLevel: initialConcurrency,
		timeoutFactor:    initialTimeoutFactor,
	}
}

// Run drives the scheduler loop until ctx is canceled. Outer-loop errors
// are logged and retried after outerErrorSleep; the loop never exits on
// its own.
func (s *Scheduler) Run(ctx context.Context) {
	log := s.settings.Log
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.iterate(ctx); err != nil {
			log.WithError(err).Error("scheduler iteration failed, retrying")
			if !sleepCtx(ctx, outerErrorSleep) {
				return
			}
		}
	}
}

// iterate runs a single scheduler loop body: sample, adapt, claim, fan
// out, sleep.
func (s *Scheduler) iterate(ctx context.Context) error {
	s.adapt()

	batch, err := s.settings.QueueStore.Claim(
		ctx,
		s.concurrencyLevel,
		s.settings.Config.PriorityDomains,
		s.settings.Config.PriorityInterval,
		s.settings.Config.MaxErrorCount,
	)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		sleepCtx(ctx, emptyBatchSleep)
		return nil
	}

	// A plain errgroup.Group (not WithContext) is used deliberately: a
	// per-worker failure must never cancel its siblings mid-batch.
	var group errgroup.Group
	for _, record := range batch {
		record := record
		group.Go(func() error {
			s.worker.Process(ctx, s.timeoutFactor, record)
			return nil
		})
	}
	// errors are swallowed inside Worker.Process itself (converted to
	// mark_error); Wait only guards goroutine completion.
	_ = group.Wait()

	sleepCtx(ctx, batchCycleSleep)
	return nil
}

// adapt samples CPU/RAM and adjusts concurrencyLevel/timeoutFactor,
// forcing a hard reset every resetEveryNUpdates iterations to escape bad
// local minima.
func (s *Scheduler) adapt() {
	sample, err := resource.Now()
	if err != nil {
		s.settings.Log.WithError(err).Warn("resource sample failed, skipping adaptation this round")
		sample = resource.Sample{CPUPercent: lowLoadThreshold, RAMPercent: lowRAMThreshold}
	}
	s.concurrencyLevel, s.timeoutFactor, s.updateCount = nextAdaptiveState(
		sample, s.concurrencyLevel, s.timeoutFactor, s.updateCount, s.settings.Config.MaxConcurrentRequests)
}

// nextAdaptiveState is the pure step function behind adapt: given a
// resource sample and the current state, it returns the next
// (concurrencyLevel, timeoutFactor, updateCount), bounds-clamped, with a
// hard reset on the resetEveryNUpdates'th call.
func nextAdaptiveState(sample resource.Sample, concurrencyLevel int, timeoutFactor float64, updateCount, maxConcurrency int) (int, float64, int) {
	if sample.CPUPercent > highLoadThreshold || sample.RAMPercent > highLoadThreshold {
		concurrencyLevel--
		timeoutFactor += timeoutFactorStep
	} else if sample.CPUPercent < lowLoadThreshold && sample.RAMPercent < lowRAMThreshold &&
		concurrencyLevel < maxConcurrency {
		concurrencyLevel++
		timeoutFactor -= timeoutFactorStep
	}

	concurrencyLevel = clampInt(concurrencyLevel, minConcurrency, maxConcurrency)
	timeoutFactor = clampFloat(timeoutFactor, minTimeoutFactor, maxTimeoutFactor)

	updateCount++
	if updateCount >= resetEveryNUpdates {
		concurrencyLevel = initialConcurrency
		timeoutFactor = initialTimeoutFactor
		updateCount = 0
	}
	return concurrencyLevel, timeoutFactor, updateCount
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sleepCtx sleeps for d or returns false early if ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

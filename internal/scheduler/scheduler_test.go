package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/metrics"
	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/scheduler"
	"github.com/benny59/architetti/internal/scraper"
)

type fakeIngester struct {
	mu     sync.Mutex
	order  []string
	yields map[string][]model.Record
}

func (f *fakeIngester) Run(_ context.Context, reg scraper.Registration) ([]model.Record, scraper.Stats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, reg.Nickname)
	recs := f.yields[reg.Nickname]
	return recs, scraper.Stats{Inserted: len(recs)}
}

func (f *fakeIngester) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

type fakeNotifier struct {
	mu      sync.Mutex
	batches [][]model.Record
	dest    []int64
}

func (f *fakeNotifier) Notify(_ context.Context, destination int64, records []model.Record) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, records)
	f.dest = append(f.dest, destination)
	return len(records), nil
}

func regs(specs ...any) []scraper.Registration {
	var out []scraper.Registration
	for i := 0; i < len(specs); i += 2 {
		out = append(out, scraper.Registration{Nickname: specs[i].(string), Enabled: specs[i+1].(bool)})
	}
	return out
}

func TestRunCycle_SequentialEnabledOnly(t *testing.T) {
	ing := &fakeIngester{yields: map[string][]model.Record{
		"a": {{Title: "A1"}, {Title: "A2"}},
		"c": {{Title: "C1"}},
	}}
	not := &fakeNotifier{}
	s := scheduler.New(regs("a", true, "b", false, "c", true, "d", true),
		ing, not, scheduler.Options{Interval: time.Hour, Destination: -42}, metrics.New(), logger.NewNop())

	report := s.RunCycle(context.Background())

	assert.Equal(t, []string{"a", "c", "d"}, ing.calls())
	assert.NotEmpty(t, report.ID)
	require.Len(t, report.Sources, 3)
	assert.Equal(t, 2, report.Sources[0].New)
	assert.Equal(t, 2, report.Sources[0].Notified)
	assert.Equal(t, 0, report.Sources[2].New)

	require.Len(t, not.batches, 2, "sources without new records are not notified")
	assert.Equal(t, "A1", not.batches[0][0].Title)
	assert.Equal(t, "C1", not.batches[1][0].Title)
	assert.Equal(t, []int64{-42, -42}, not.dest)
}

func TestRunCycle_DistinctIDs(t *testing.T) {
	s := scheduler.New(regs("a", true), &fakeIngester{}, &fakeNotifier{},
		scheduler.Options{Interval: time.Hour}, metrics.New(), logger.NewNop())

	first := s.RunCycle(context.Background())
	second := s.RunCycle(context.Background())
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRunCycle_CancelledSkipsRemainingSources(t *testing.T) {
	ing := &fakeIngester{}
	s := scheduler.New(regs("a", true, "b", true), ing, &fakeNotifier{},
		scheduler.Options{Interval: time.Hour}, metrics.New(), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := s.RunCycle(ctx)
	assert.Empty(t, report.Sources)
	assert.Empty(t, ing.calls())
}

func TestRun_LoopsUntilCancelled(t *testing.T) {
	ing := &fakeIngester{}
	s := scheduler.New(regs("a", true), ing, &fakeNotifier{},
		scheduler.Options{Interval: 10 * time.Millisecond}, metrics.New(), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(ing.calls()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestRun_RejectsNonPositiveInterval(t *testing.T) {
	s := scheduler.New(regs("a", true), &fakeIngester{}, &fakeNotifier{},
		scheduler.Options{}, metrics.New(), logger.NewNop())
	assert.Error(t, s.Run(context.Background()))
}

func TestRun_CronRunsImmediatelyAndStops(t *testing.T) {
	ing := &fakeIngester{}
	s := scheduler.New(regs("a", true), ing, &fakeNotifier{},
		scheduler.Options{Cron: "@every 1h"}, metrics.New(), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(ing.calls()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cron scheduler did not stop after cancellation")
	}
}

func TestRun_InvalidCron(t *testing.T) {
	s := scheduler.New(regs("a", true), &fakeIngester{}, &fakeNotifier{},
		scheduler.Options{Cron: "not a schedule"}, metrics.New(), logger.NewNop())
	assert.Error(t, s.Run(context.Background()))
}

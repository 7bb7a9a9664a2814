package cron

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquires int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	f.acquires++
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.held = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, registry *Registry, lock Lock, reg prometheus.Registerer) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	service := newTestService(t, NewRegistry(success, failure), &fakeLock{}, nil)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if success.runs != 1 {
		t.Fatalf("expected success job to run once, ran %d", success.runs)
	}
	if failure.runs != 1 {
		t.Fatalf("expected failure job to run once, ran %d", failure.runs)
	}
}

func TestServiceHonoursPerJobInterval(t *testing.T) {
	everyTick := &testJob{name: "every-tick"}
	sixHourly := &testJob{name: "six-hourly"}
	registry := NewRegistry()
	registry.Register(everyTick, 0)
	registry.Register(sixHourly, 6*time.Hour)

	service := newTestService(t, registry, &fakeLock{}, nil)
	clock := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return clock }

	for i := 0; i < 4; i++ {
		if err := service.runCycle(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		clock = clock.Add(2 * time.Hour)
	}
	// cycles at 0h, 2h, 4h, 6h
	if everyTick.runs != 4 {
		t.Fatalf("expected every-tick job to run 4 times, ran %d", everyTick.runs)
	}
	if sixHourly.runs != 2 {
		t.Fatalf("expected six-hourly job to run twice, ran %d", sixHourly.runs)
	}
}

func TestServiceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "guarded"}
	lock := &fakeLock{held: true}
	reg := prometheus.NewRegistry()
	service := newTestService(t, NewRegistry(job), lock, reg)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	skipped, err := fetchCounter(families, "cron_job_skipped_total", "guarded")
	if err != nil {
		t.Fatalf("skipped counter: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("expected one skipped run, got %v", skipped)
	}

	// A skipped job stays due for the next cycle.
	lock.held = false
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected job to run once lock freed, ran %d", job.runs)
	}
}

func TestServiceDoesNotTakeLockWhenNothingDue(t *testing.T) {
	job := &testJob{name: "daily"}
	registry := NewRegistry()
	registry.Register(job, 24*time.Hour)
	lock := &fakeLock{}
	service := newTestService(t, registry, lock, nil)

	ctx := context.Background()
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if lock.acquires != 1 {
		t.Fatalf("expected a single lock acquisition, got %d", lock.acquires)
	}
}

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry := NewRegistry()
	jobA := &testJob{name: "a"}
	jobB := &testJob{name: "b"}
	registry.Register(jobA, time.Hour)
	registry.Register(nil, time.Hour)
	registry.Register(jobB, -time.Minute)

	entries := registry.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Job != jobA || entries[1].Job != jobB {
		t.Fatalf("entries returned out of order")
	}
	if entries[1].Every != 0 {
		t.Fatalf("expected negative interval to clamp to zero, got %v", entries[1].Every)
	}
	entries[0].Job = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func fetchCounter(families []*dto.MetricFamily, name, job string) (float64, error) {
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return metric.GetCounter().GetValue(), nil
				}
			}
		}
	}
	return 0, fmt.Errorf("metric %s{job=%q} not found", name, job)
}

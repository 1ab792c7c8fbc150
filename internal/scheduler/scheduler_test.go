package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	calls    atomic.Int32
	run      func(call int) error
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(context.Context) error {
	call := int(j.calls.Add(1))
	if j.run == nil {
		return nil
	}
	return j.run(call)
}

func newJob(name string, run func(call int) error) *fakeJob {
	return &fakeJob{name: name, schedule: "0 0 2 * * *", run: run}
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop(), WithRetry(2, time.Millisecond))
}

func TestAddRemoveJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(newJob("b", nil)))
	require.NoError(t, s.AddJob(newJob("a", nil)))
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	err := s.AddJob(newJob("a", nil))
	assert.ErrorContains(t, err, "already exists")

	require.NoError(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))

	// 제거 후 같은 이름으로 재등록 가능
	require.NoError(t, s.AddJob(newJob("a", nil)))
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := newTestScheduler()

	job := newJob("bad", nil)
	job.schedule = "every tuesday"

	err := s.AddJob(job)
	assert.ErrorContains(t, err, "failed to schedule job bad")
	assert.Empty(t, s.GetAllJobs())
}

func TestRunNow(t *testing.T) {
	s := newTestScheduler()
	job := newJob("ok", nil)
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, result.Error)
	assert.Equal(t, int32(1), job.calls.Load())

	_, err = s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRunNow_Retries(t *testing.T) {
	tests := []struct {
		name         string
		run          func(call int) error
		wantSuccess  bool
		wantAttempts int
	}{
		{
			name:         "transient then success",
			run:          func(call int) error { return failUntil(call, 2) },
			wantSuccess:  true,
			wantAttempts: 2,
		},
		{
			name:         "always failing",
			run:          func(int) error { return errors.New("disk full") },
			wantSuccess:  false,
			wantAttempts: 3,
		},
		{
			name: "invalid parameter is not retried",
			run: func(int) error {
				return fmt.Errorf("simulate: %w", risk.ErrInvalidParameter)
			},
			wantSuccess:  false,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler()
			job := newJob("job", tt.run)
			require.NoError(t, s.AddJob(job))

			result, err := s.RunNow(context.Background(), "job")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantAttempts, result.Attempts)
			assert.Equal(t, int32(tt.wantAttempts), job.calls.Load())
			if !tt.wantSuccess {
				assert.NotEmpty(t, result.Error)
			}
		})
	}
}

func failUntil(call, n int) error {
	if call < n {
		return errors.New("temporary")
	}
	return nil
}

func TestRunNow_CancelledDuringRetry(t *testing.T) {
	s := New(logger.Nop(), WithRetry(5, time.Hour))
	job := newJob("slow", func(int) error { return errors.New("temporary") })
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := s.RunNow(ctx, "slow")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, context.DeadlineExceeded.Error(), result.Error)
}

func TestHistoryAndStats(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(newJob("ok", nil)))
	require.NoError(t, s.AddJob(newJob("bad", func(int) error { return risk.ErrInvalidInput })))

	for i := 0; i < 3; i++ {
		_, err := s.RunNow(context.Background(), "ok")
		require.NoError(t, err)
	}
	_, err := s.RunNow(context.Background(), "bad")
	require.NoError(t, err)

	history, err := s.GetJobHistory("ok")
	require.NoError(t, err)
	assert.Len(t, history.Results, 3)

	stats := s.GetJobStats()
	require.Contains(t, stats, "ok")
	assert.Equal(t, 3, stats["ok"].TotalRuns)
	assert.Equal(t, 1.0, stats["ok"].SuccessRate)
	assert.NotNil(t, stats["ok"].LastSuccess)
	assert.Nil(t, stats["ok"].LastFailure)

	assert.Equal(t, 1, stats["bad"].FailureCount)
	assert.Equal(t, 0.0, stats["bad"].SuccessRate)
	assert.NotNil(t, stats["bad"].LastFailure)

	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestJobHistory_Bounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{Attempts: i})
	}

	assert.Len(t, h.Results, maxHistory)
	assert.Equal(t, maxHistory+9, h.GetLatestResults(1)[0].Attempts)
	assert.Empty(t, (&JobHistory{}).GetLatestResults(5))
}

func TestNextRun(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(newJob("nightly", nil)))

	s.Start()
	defer s.Stop()

	next, err := s.NextRun("nightly")
	require.NoError(t, err)
	if !next.IsZero() {
		assert.Equal(t, 2, next.Hour())
		assert.True(t, next.After(time.Now()))
	}

	_, err = s.NextRun("missing")
	assert.Error(t, err)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(errors.New("connection refused")))
	assert.False(t, Retryable(fmt.Errorf("x: %w", risk.ErrInvalidParameter)))
	assert.False(t, Retryable(risk.ErrInvalidInput))
	assert.False(t, Retryable(context.Canceled))
	assert.False(t, Retryable(context.DeadlineExceeded))
}

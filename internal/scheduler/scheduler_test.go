package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

func TestScheduler_RunsRepeatedlyAtInterval(t *testing.T) {
	var calls int32
	s := New(func(ctx context.Context) (*models.IngestionRunResult, error) {
		atomic.AddInt32(&calls, 1)
		return &models.IngestionRunResult{}, nil
	})

	s.Start(20 * time.Millisecond)
	defer s.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	status := s.Status()
	assert.True(t, status.Running)
	assert.NotNil(t, status.LastRunAt)
	assert.NotNil(t, status.LastResult)
}

func TestScheduler_StopIsPromptAndIdempotent(t *testing.T) {
	s := New(func(ctx context.Context) (*models.IngestionRunResult, error) {
		return &models.IngestionRunResult{}, nil
	})

	s.Start(time.Hour)
	require.Eventually(t, func() bool { return s.Status().LastRunAt != nil }, time.Second, 5*time.Millisecond)

	start := time.Now()
	s.Stop()
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, s.Status().Running)

	s.Stop() // idempotent, must not block or panic
}

func TestScheduler_RestartStopsPriorLoop(t *testing.T) {
	var calls int32
	s := New(func(ctx context.Context) (*models.IngestionRunResult, error) {
		atomic.AddInt32(&calls, 1)
		return &models.IngestionRunResult{}, nil
	})

	s.Start(5 * time.Millisecond)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, time.Second, 5*time.Millisecond)

	s.Start(time.Hour)
	defer s.Stop()

	n := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), n+1, "restarting should stop the prior loop rather than running two concurrently")
}

func TestScheduler_RecordsRunError(t *testing.T) {
	s := New(func(ctx context.Context) (*models.IngestionRunResult, error) {
		return nil, assertErr
	})

	s.Start(time.Hour)
	defer s.Stop()

	require.Eventually(t, func() bool { return s.Status().LastError != "" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, assertErr.Error(), s.Status().LastError)
}

var assertErr = simpleErr("run failed")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

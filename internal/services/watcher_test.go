package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsChangedFile(t *testing.T) {
	path := createTempCSV(t, sampleCSV)

	a := NewAnalytics()
	require.NoError(t, a.LoadFromCSV(context.Background(), path))
	before := a.Dataset()

	reloaded := make(chan struct{}, 1)
	w := NewWatcher(a, 10*time.Millisecond, OnReload(func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	}))
	w.Start(context.Background())
	defer w.Stop()

	rewriteCSV(t, path, sampleCSV+"O-3,2024-03-01,C,North,Complete,3,5.00\n", time.Minute)

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not reload the changed file")
	}

	assert.Equal(t, 3, a.Dataset().Len())
	assert.Equal(t, 2, before.Len(), "readers holding the old dataset keep a consistent view")
}

func TestWatcher_KeepsDatasetOnFailedReload(t *testing.T) {
	path := createTempCSV(t, sampleCSV)

	a := NewAnalytics()
	require.NoError(t, a.LoadFromCSV(context.Background(), path))
	before := a.Dataset()

	w := NewWatcher(a, 10*time.Millisecond)
	w.Start(context.Background())
	defer w.Stop()

	rewriteCSV(t, path, "order_date,category\nbroken\n", time.Minute)

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return !w.failedMod.IsZero()
	}, 2*time.Second, 10*time.Millisecond, "watcher should record the failed reload")
	assert.Same(t, before, a.Dataset())

	rewriteCSV(t, path, sampleCSV+"O-3,2024-03-01,C,North,Complete,3,5.00\n", 2*time.Minute)

	require.Eventually(t, func() bool {
		return a.Dataset().Len() == 3
	}, 2*time.Second, 10*time.Millisecond, "watcher should recover once the file is fixed")
}

func TestWatcher_StopsWithContext(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioOrders(t))

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(a, time.Millisecond)
	w.Start(ctx)
	cancel()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("watcher did not exit after context cancellation")
	}
	w.Stop()
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioOrders(t))

	w := NewWatcher(a, time.Millisecond)
	w.Start(context.Background())

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		w.Stop()
		w.Stop()
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("repeated Stop did not return")
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w := NewWatcher(NewAnalytics(), time.Millisecond)
	assert.Nil(t, w.Done())

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		w.Stop()
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a watcher that was never started")
	}

	// Starting after Stop exits at once instead of polling.
	w.Start(context.Background())
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("watcher started after Stop kept running")
	}
}

func TestAnalytics_CacheHitIsNotAReload(t *testing.T) {
	path := createTempCSV(t, sampleCSV)
	a := NewAnalytics()
	require.NoError(t, a.LoadFromCSV(context.Background(), path))

	published, err := a.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, published, "an unchanged source publishes nothing")
	assert.Equal(t, int64(1), a.Stats()["loads"])
}

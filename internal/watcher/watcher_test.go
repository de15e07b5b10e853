package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfwise/internal/model"
)

type eventCollector struct {
	mu     sync.Mutex
	events []model.WatchEvent
}

func (c *eventCollector) handle(events []model.WatchEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
}

func (c *eventCollector) snapshot() []model.WatchEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.WatchEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *eventCollector) waitFor(t *testing.T, pred func([]model.WatchEvent) bool) []model.WatchEvent {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if events := c.snapshot(); pred(events) {
			return events
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for events; got %v", c.snapshot())
	return nil
}

func TestWatcherEmitsFileCreate(t *testing.T) {
	dir := t.TempDir()
	collector := &eventCollector{}

	w := New(dir, 0, collector.handle, WithCoalesceWindow(50*time.Millisecond))
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "incoming.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	events := collector.waitFor(t, func(events []model.WatchEvent) bool {
		return len(events) > 0
	})
	assert.Equal(t, path, events[0].Path)
	assert.Equal(t, model.EventCreated, events[0].Kind)
}

func TestWatcherCoalescesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	collector := &eventCollector{}

	w := New(dir, 0, collector.handle, WithCoalesceWindow(200*time.Millisecond))
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "burst.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.WriteString("chunk\n")
		require.NoError(t, err)
		require.NoError(t, f.Sync())
	}
	require.NoError(t, f.Close())

	events := collector.waitFor(t, func(events []model.WatchEvent) bool {
		return len(events) > 0
	})
	// Give any stragglers a chance to fire, then confirm the burst collapsed.
	time.Sleep(400 * time.Millisecond)
	events = collector.snapshot()
	assert.Len(t, events, 1)
	assert.Equal(t, model.EventCreated, events[0].Kind)
}

func TestWatcherSuppressesDirectoryEvents(t *testing.T) {
	dir := t.TempDir()
	collector := &eventCollector{}

	w := New(dir, model.WatchDepthUnbounded, collector.handle, WithCoalesceWindow(50*time.Millisecond))
	require.NoError(t, w.Start())
	defer w.Stop()

	sub := filepath.Join(dir, "newdir")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// A file written into the new directory should be surfaced; the
	// directory creation itself should not.
	time.Sleep(250 * time.Millisecond)
	path := filepath.Join(sub, "nested.txt")
	require.NoError(t, os.WriteFile(path, []byte("deep"), 0o644))

	events := collector.waitFor(t, func(events []model.WatchEvent) bool {
		return len(events) > 0
	})
	for _, ev := range events {
		assert.NotEqual(t, sub, ev.Path, "directory self-event leaked")
	}
	assert.Equal(t, path, events[0].Path)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 0, func([]model.WatchEvent) {})

	// Stop without start must not panic.
	w.Stop()

	w2 := New(dir, 0, func([]model.WatchEvent) {})
	require.NoError(t, w2.Start())
	w2.Stop()
	w2.Stop()
}

func TestWatcherRemoveEmitsImmediately(t *testing.T) {
	dir := t.TempDir()
	collector := &eventCollector{}

	path := filepath.Join(dir, "victim.txt")
	require.NoError(t, os.WriteFile(path, []byte("bye"), 0o644))

	w := New(dir, 0, collector.handle, WithCoalesceWindow(50*time.Millisecond))
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.Remove(path))

	events := collector.waitFor(t, func(events []model.WatchEvent) bool {
		for _, ev := range events {
			if ev.Kind == model.EventRemoved {
				return true
			}
		}
		return false
	})
	require.NotEmpty(t, events)
}

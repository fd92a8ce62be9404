package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIgnoreEvent(t *testing.T) {
	cases := map[string]bool{
		"docs/guide.md":       false,
		"docs/.guide.md.swp":  true,
		"docs/guide.md~":      true,
		"docs/guide.swx":      true,
		"docs/#guide.md#":     true,
		"docs/.hidden":        true,
		"docs/Thumbs.db":      true,
		"docs/sub/install.md": false,
	}
	for path, want := range cases {
		assert.Equal(t, want, shouldIgnoreEvent(path), path)
	}
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	var calls atomic.Int32
	d := newDebouncer(50*time.Millisecond, func() { calls.Add(1) })
	t.Cleanup(d.stop)

	for range 5 {
		d.trigger()
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	var calls atomic.Int32
	d := newDebouncer(30*time.Millisecond, func() { calls.Add(1) })
	d.trigger()
	d.stop()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

type triggerLog struct {
	mu       sync.Mutex
	triggers []string
}

func (l *triggerLog) record(_ context.Context, trigger string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.triggers = append(l.triggers, trigger)
}

func (l *triggerLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.triggers...)
}

func (l *triggerLog) count(trigger string) int {
	n := 0
	for _, got := range l.snapshot() {
		if got == trigger {
			n++
		}
	}
	return n
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestWatcher_RunsAtStartupAndOnChange(t *testing.T) {
	root := t.TempDir()
	log := &triggerLog{}
	startWatcher(t, NewWatcher(root, ".md", 30*time.Millisecond, 0, log.record))

	require.Eventually(t, func() bool { return log.count(TriggerStartup) == 1 }, 2*time.Second, 10*time.Millisecond)

	// Give fsnotify time to register the root before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "guide.md"), []byte("# Guide\n"), 0o600))

	require.Eventually(t, func() bool { return log.count(TriggerWatch) >= 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	log := &triggerLog{}
	startWatcher(t, NewWatcher(root, ".md", 20*time.Millisecond, 0, log.record))

	require.Eventually(t, func() bool { return log.count(TriggerStartup) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, log.count(TriggerWatch))
}

func TestWatcher_IntervalRuns(t *testing.T) {
	root := t.TempDir()
	log := &triggerLog{}
	startWatcher(t, NewWatcher(root, ".md", time.Second, 30*time.Millisecond, log.record))

	require.Eventually(t, func() bool { return log.count(TriggerInterval) >= 2 }, 3*time.Second, 10*time.Millisecond)
}

func TestWatcher_MissingRootFails(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	w := NewWatcher(root, ".md", time.Millisecond, 0, func(context.Context, string) {})

	require.Error(t, w.Run(context.Background()))
}

// File: internal/browser/launcher_test.go
package browser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/guestpass/internal/config"
	"go.uber.org/zap/zaptest"
)

// fakeStart stands in for the browser launch and remembers the context the
// process would have been bound to.
type fakeStart struct {
	mu    sync.Mutex
	ctx   context.Context
	block bool
	err   error
}

func (f *fakeStart) run(tabCtx context.Context) error {
	f.mu.Lock()
	f.ctx = tabCtx
	f.mu.Unlock()
	if f.block {
		<-tabCtx.Done()
		return tabCtx.Err()
	}
	return f.err
}

func (f *fakeStart) launchCtx() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx
}

func newTestLauncher(t *testing.T, f *fakeStart) *Launcher {
	t.Helper()
	cfg := config.NewDefaultConfig()
	l := NewLauncher(cfg.Browser(), cfg.Timing(), zaptest.NewLogger(t))
	l.start = f.run
	return l
}

func TestLauncherOpen_BrowserOutlivesOpen(t *testing.T) {
	f := &fakeStart{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	page, err := newTestLauncher(t, f).Open(ctx)
	require.NoError(t, err)
	launchCtx := f.launchCtx()
	require.NotNil(t, launchCtx)

	assert.NoError(t, launchCtx.Err(), "returning from Open leaves the browser running")
	cancel()
	assert.NoError(t, launchCtx.Err(), "the caller's context does not own the browser")

	require.NoError(t, page.Close())
	select {
	case <-launchCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not stop the browser context")
	}
}

func TestLauncherOpen_Failures(t *testing.T) {
	t.Run("launch error", func(t *testing.T) {
		launchErr := errors.New("exec: chromium not found")
		f := &fakeStart{err: launchErr}

		_, err := newTestLauncher(t, f).Open(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, launchErr)
		assert.Error(t, f.launchCtx().Err(), "a failed launch releases the browser context")
	})

	t.Run("watchdog", func(t *testing.T) {
		f := &fakeStart{block: true}
		l := newTestLauncher(t, f)
		l.launchTimeout = 50 * time.Millisecond

		start := time.Now()
		_, err := l.Open(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no response within")
		assert.Less(t, time.Since(start), 5*time.Second)
		assert.Error(t, f.launchCtx().Err())
	})

	t.Run("caller cancels during launch", func(t *testing.T) {
		f := &fakeStart{block: true}
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(50*time.Millisecond, cancel)

		_, err := newTestLauncher(t, f).Open(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func start(t *testing.T, w *Watcher, fn func()) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, fn) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		assert.NoError(t, w.Close())
	})
	return cancel
}

func TestWriteFiresAfterDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "term.sysf")
	require.NoError(t, os.WriteFile(path, []byte(`\x. x`), 0o644))

	w, err := New(path, WithDebounce(20*time.Millisecond), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(w.Path()))

	fired := make(chan struct{}, 8)
	start(t, w, func() { fired <- struct{}{} })

	require.NoError(t, os.WriteFile(path, []byte(`\x y. x`), 0o644))
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestBurstCoalesces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "term.sysf")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	w, err := New(path, WithDebounce(200*time.Millisecond))
	require.NoError(t, err)

	var n atomic.Int32
	start(t, w, func() { n.Add(1) })

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}
	assert.Eventually(t, func() bool { return n.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
}

func TestSiblingFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "term.sysf")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	w, err := New(path, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	var n atomic.Int32
	start(t, w, func() { n.Add(1) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.sysf"), []byte("x"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, n.Load())
}

func TestRunAfterCloseReturnsErrClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "term.sysf")
	w, err := New(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	err = w.Run(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope", "term.sysf"))
	assert.Error(t, err)
}

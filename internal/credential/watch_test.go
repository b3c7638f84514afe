package credential

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchDirInvalidatesListCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	m := NewManager(Options{Store: NewFileStore(dir)})

	// Populate the cache with the empty listing.
	ids, err := m.ListCredentials(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)

	go func() { _ = WatchDir(ctx, dir, m) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p1.json"), []byte(`{"token":"t"}`), 0o600))

	require.Eventually(t, func() bool {
		ids, err := m.ListCredentials(ctx)
		return err == nil && len(ids) == 1
	}, 3*time.Second, 20*time.Millisecond, "dropped-in credential must become visible")
}

package credential

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// WatchDir invalidates the manager's listing cache whenever a credential
// file under dir is created, renamed or removed. Blocks until ctx is done.
// Credentials can therefore be dropped into the directory at runtime without
// a restart.
func WatchDir(ctx context.Context, dir string, m *Manager) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	log.Debugf("watching credential directory %s", dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(event.Name), ".json") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debugf("credential directory changed (%s), reloading", event.Op)
			m.InvalidateCache()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("credential directory watch error")
		}
	}
}

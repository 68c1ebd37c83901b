package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/dotcommander/blgate/internal/errs"
	"github.com/dotcommander/blgate/internal/manifest"
)

// lockFile guards a manifest directory against a second watcher.
const lockFile = ".blgate-watch.lock"

// settleDelay lets editors finish writing before the manifest is re-read.
const settleDelay = 100 * time.Millisecond

// Watch publishes (kind, key) once, then again every time its manifest is
// written, until ctx is done. Publish failures are logged, not returned.
// Only one watcher may hold a manifest directory at a time.
func (p *Publisher) Watch(ctx context.Context, kind, key string) error {
	path := manifest.Path(p.dir, kind, key)

	lock := flock.New(filepath.Join(filepath.Dir(path), lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return errs.Error{Err: err, Reason: fmt.Sprintf("Could not lock %s %s for watching.", kind, key)}
	}
	if !locked {
		return errs.Error{Reason: fmt.Sprintf("Another publisher is already watching %s %s.", kind, key)}
	}
	defer func() { _ = lock.Unlock() }()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so editors that replace the file are still seen.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	p.logger.Infow("watching manifest", "path", path)

	p.publishLogged(ctx, kind, key)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != manifest.FileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(settleDelay):
			}
			p.publishLogged(ctx, kind, key)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Errorw("file watcher error", "error", err)
		}
	}
}

func (p *Publisher) publishLogged(ctx context.Context, kind, key string) {
	if err := p.Publish(ctx, kind, key); err != nil {
		p.logger.Errorw("publish failed", "type", kind, "name", key, "error", err)
	}
}

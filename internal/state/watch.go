package state

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// Watch reports the project in dir every time its state file changes,
// starting with the current state. The channel is closed when ctx is done
// or the underlying watcher fails.
func (s *Store) Watch(ctx context.Context, dir string) (<-chan *models.Project, error) {
	initial, err := s.Read(dir)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: atomic renames replace the file inode.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	updates := make(chan *models.Project, 1)
	updates <- initial

	go func() {
		defer close(updates)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				base := filepath.Base(event.Name)
				if base != StateFile && base != LegacyStateFile {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				p, err := s.Read(dir)
				if err != nil {
					log.Printf("[state] watch %s: reload failed: %v", dir, err)
					continue
				}
				select {
				case updates <- p:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[state] watch %s: %v", dir, err)
			}
		}
	}()

	return updates, nil
}

// Package file provides a YAML-file backed credential repository that
// reloads itself when the file changes.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/repository"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/persistence/memory"
)

const reloadDebounce = 200 * time.Millisecond

// document is the on-disk layout:
//
//	bots:
//	  - routing_key: support
//	    slack_token: xoxb-...
//	    signing_secret: ...
type document struct {
	Bots []repository.CredentialRecord `yaml:"bots"`
}

// CredentialRepository serves credentials from a YAML file.
// Lookups are answered from memory; the file is re-read on change.
type CredentialRepository struct {
	path   string
	store  *memory.CredentialRepository
	logger logger.Logger

	mu       sync.Mutex
	onReload []func()
}

// NewCredentialRepository loads path once. Call Watch to follow changes.
func NewCredentialRepository(path string, logger logger.Logger) (*CredentialRepository, error) {
	r := &CredentialRepository{
		path:   path,
		store:  memory.NewCredentialRepository(),
		logger: logger,
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// FindByRoutingKey returns the credentials for a routing key.
func (r *CredentialRepository) FindByRoutingKey(ctx context.Context, routingKey string) (*repository.CredentialRecord, error) {
	return r.store.FindByRoutingKey(ctx, routingKey)
}

// Ping reports whether the credentials file is still readable.
func (r *CredentialRepository) Ping(ctx context.Context) error {
	if _, err := os.Stat(r.path); err != nil {
		return fmt.Errorf("credentials file: %w", err)
	}
	return nil
}

// OnReload registers fn to run after every successful reload.
func (r *CredentialRepository) OnReload(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReload = append(r.onReload, fn)
}

// Watch re-reads the file on change until ctx is done.
// A file that fails to parse keeps the previous records in place.
func (r *CredentialRepository) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating credentials watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watching credentials directory: %w", err)
	}

	target := filepath.Clean(r.path)
	var timer <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) == target && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				timer = time.After(reloadDebounce)
			}

		case <-timer:
			timer = nil
			if err := r.load(); err != nil {
				r.logger.Error("failed to reload credentials", "path", r.path, "error", err)
				continue
			}
			r.logger.Info("credentials reloaded", "path", r.path, "bots", r.store.Len())
			r.notify()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("credentials watcher error", "error", err)
		}
	}
}

func (r *CredentialRepository) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("reading credentials file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &doc); err != nil {
		return fmt.Errorf("parsing credentials file: %w", err)
	}

	seen := make(map[string]bool, len(doc.Bots))
	for i, bot := range doc.Bots {
		if bot.RoutingKey == "" {
			return fmt.Errorf("bots[%d]: routing_key is required: %w", i, repository.ErrInvalidRecord)
		}
		if seen[bot.RoutingKey] {
			return fmt.Errorf("bots[%d]: duplicate routing_key %q", i, bot.RoutingKey)
		}
		seen[bot.RoutingKey] = true
	}

	r.store.Replace(doc.Bots)
	return nil
}

func (r *CredentialRepository) notify() {
	r.mu.Lock()
	hooks := append([]func(){}, r.onReload...)
	r.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

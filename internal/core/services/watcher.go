package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// Watcher bridges connector change streams into prompt pipeline runs.
// Change events never feed the pipeline directly: an event only
// requests a run, debounced so an editor save burst or a bulk copy
// collapses into one pass, and the run's own classification decides
// what actually changed.
type Watcher struct {
	factory  driven.ConnectorFactory
	sources  []domain.Source
	debounce time.Duration
	trigger  func()
}

// NewWatcher creates a watcher that calls trigger once the sources have
// been quiet for debounce after a change event.
func NewWatcher(factory driven.ConnectorFactory, sources []domain.Source, debounce time.Duration, trigger func()) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		factory:  factory,
		sources:  sources,
		debounce: debounce,
		trigger:  trigger,
	}
}

// Start watches every watch-capable source until ctx is cancelled.
// Sources that cannot watch are skipped; having none to watch is an
// error so a misconfigured watch mode fails loudly instead of idling.
func (w *Watcher) Start(ctx context.Context) error {
	events := make(chan struct{}, 1)
	var wg sync.WaitGroup
	watching := 0

	for _, source := range w.sources {
		conn, err := w.factory.Create(ctx, source)
		if err != nil {
			logger.Warn("watch: skipping source %s: %v", source.ID, err)
			continue
		}
		if !conn.Capabilities().SupportsWatch {
			conn.Close()
			continue
		}
		docs, err := conn.Watch(ctx)
		if err != nil {
			logger.Warn("watch: source %s: %v", source.ID, err)
			conn.Close()
			continue
		}

		watching++
		wg.Add(1)
		go func(conn driven.Connector, docs <-chan domain.Document) {
			defer wg.Done()
			defer conn.Close()
			for range docs {
				select {
				case events <- struct{}{}:
				default:
				}
			}
		}(conn, docs)
	}

	if watching == 0 {
		return fmt.Errorf("%w: no watch-capable sources configured", domain.ErrUnsupportedType)
	}
	logger.Info("watching %d source(s) for changes", watching)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-events:
			fire = time.After(w.debounce)
		case <-fire:
			fire = nil
			logger.Debug("watch: change settled, triggering run")
			w.trigger()
		}
	}
}

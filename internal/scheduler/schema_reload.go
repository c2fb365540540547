package scheduler

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/notionbot/internal/logger"
	"github.com/MrSnakeDoc/notionbot/internal/sources/notion"
)

// SchemaSink receives reloaded property schemas. *notion.Source satisfies it.
type SchemaSink interface {
	SetSchema(schema notion.Schema)
}

// SchemaReloader watches the property schema file and swaps it in on change
type SchemaReloader struct {
	loader        *notion.Loader
	sink          SchemaSink
	logger        logger.Logger
	watcher       *fsnotify.Watcher
	stopCh        chan struct{}
	done          chan struct{}
	manualTrigger <-chan struct{}
}

// NewSchemaReloader creates a new schema reloader for schemaFile. manualTrigger may be nil.
func NewSchemaReloader(
	schemaFile string,
	sink SchemaSink,
	log logger.Logger,
	manualTrigger <-chan struct{},
) *SchemaReloader {
	return &SchemaReloader{
		loader:        notion.NewLoader(schemaFile),
		sink:          sink,
		logger:        log,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the schema once, then watches its directory.
// Editors often replace files rather than write them, so the directory is watched, not the file.
func (sr *SchemaReloader) Start(ctx context.Context) error {
	if sr.loader.Path() == "" {
		return fmt.Errorf("no schema file to watch")
	}

	if err := sr.Reload(); err != nil {
		return fmt.Errorf("initial schema load failed: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create schema watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(sr.loader.Path())); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch schema directory: %w", err)
	}
	sr.watcher = watcher

	target := filepath.Clean(sr.loader.Path())
	resolved := resolveSymlinks(target)
	go func() {
		defer close(sr.done)
		defer watcher.Close()
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Mounted ConfigMaps swap a "..data" symlink and never touch the file itself
				current := resolveSymlinks(target)
				named := filepath.Clean(ev.Name) == target && ev.Has(fsnotify.Write|fsnotify.Create)
				swapped := current != resolved && ev.Has(fsnotify.Create|fsnotify.Rename)
				if !named && !swapped {
					continue
				}
				resolved = current
				sr.logger.Debug("schema file changed",
					logger.String("op", ev.Op.String()),
					logger.String("name", ev.Name),
					logger.String("resolved", current))
				if err := sr.Reload(); err != nil {
					sr.logger.Error("failed to reload schema, keeping previous one",
						logger.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				sr.logger.Warn("schema watcher error", logger.Error(err))
			case <-sr.manualTrigger:
				sr.logger.Info("manual schema reload triggered")
				if err := sr.Reload(); err != nil {
					sr.logger.Error("failed to reload schema, keeping previous one",
						logger.Error(err))
				}
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader and waits for its loop to exit
func (sr *SchemaReloader) Stop() {
	close(sr.stopCh)
	if sr.watcher != nil {
		<-sr.done
	}
}

// Reload reads the schema file and hands it to the sink. A bad file leaves the sink untouched.
func (sr *SchemaReloader) Reload() error {
	schema, err := sr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load schema %s: %w", sr.loader.Path(), err)
	}

	sr.sink.SetSchema(schema)

	sr.logger.Info("property schema loaded",
		logger.String("path", sr.loader.Path()),
		logger.String("events_title", schema.Events.TitleProperty),
		logger.String("events_date", schema.Events.DateProperty),
		logger.String("docs_title", schema.Docs.TitleProperty))

	return nil
}

// resolveSymlinks returns the real path behind path, or "" while it cannot be resolved.
func resolveSymlinks(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return ""
	}
	return resolved
}

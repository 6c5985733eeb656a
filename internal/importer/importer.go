package importer

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/digest/internal/domain"
	"github.com/MrSnakeDoc/digest/internal/logger"
	"github.com/MrSnakeDoc/digest/internal/store/postgres"
)

// Importer loads a YAML bookmark export once at startup and inserts any
// URL the owner does not already have. It is a one-shot run, not a
// scheduler: re-running the process with the same file is idempotent.
type Importer struct {
	filePath    string
	owner       uuid.UUID
	store       *postgres.Store
	faviconBase string
	logger      logger.Logger
}

// New creates an importer for the given export file and owner.
func New(filePath string, owner uuid.UUID, st *postgres.Store, faviconBase string, log logger.Logger) *Importer {
	return &Importer{
		filePath:    filePath,
		owner:       owner,
		store:       st,
		faviconBase: faviconBase,
		logger:      log,
	}
}

// Load reads and parses the export file.
func (i *Importer) Load() (ExportFile, error) {
	data, err := os.ReadFile(i.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	var export ExportFile
	if err := yaml.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse import yaml: %w", err)
	}
	return export, nil
}

// Run imports the file. Malformed entries are skipped with a warning;
// entries whose URL the owner already has are skipped silently.
func (i *Importer) Run(ctx context.Context) error {
	export, err := i.Load()
	if err != nil {
		return err
	}

	imported, skipped := 0, 0
	for _, entry := range export {
		b, ok := i.mapEntry(entry)
		if !ok {
			skipped++
			continue
		}

		exists, err := i.store.HasURL(ctx, i.owner, b.URL)
		if err != nil {
			return fmt.Errorf("import existence check failed: %w", err)
		}
		if exists {
			skipped++
			continue
		}

		if _, err := i.store.Create(ctx, b); err != nil {
			return fmt.Errorf("import insert failed for %s: %w", b.URL, err)
		}
		imported++
	}

	i.logger.Info("bookmark import finished",
		logger.String("file", i.filePath),
		logger.Int("imported", imported),
		logger.Int("skipped", skipped))
	return nil
}

// mapEntry converts an export entry to a domain bookmark. Entries
// without an absolute URL are rejected.
func (i *Importer) mapEntry(entry Entry) (*domain.Bookmark, bool) {
	u, err := url.Parse(entry.URL)
	if err != nil || !u.IsAbs() || u.Hostname() == "" {
		i.logger.Warn("skipping import entry without a valid absolute url",
			logger.String("title", entry.Title),
			logger.String("url", entry.URL))
		return nil, false
	}

	return &domain.Bookmark{
		ID:         uuid.New(),
		OwnerID:    i.owner,
		URL:        entry.URL,
		Title:      entry.Title,
		Tags:       domain.NormalizeTags(entry.Tags),
		FaviconURL: domain.FaviconURL(i.faviconBase, entry.URL),
	}, true
}

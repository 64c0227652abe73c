package service

import (
	"context"
	"path/filepath"
	"time"

	"github.com/itchan-dev/mediable/shared/domain"
	"github.com/itchan-dev/mediable/shared/logger"
)

// MediaGarbageCollector removes files on disk that no media record
// references any more.
type MediaGarbageCollector struct {
	storage          GCStorage
	mediaStorage     GCMediaStorage
	safetyThreshold  time.Duration
	now              func() time.Time
	lastCleanupStats CleanupStats
}

// CleanupStats tracks metrics from the last garbage collection run.
type CleanupStats struct {
	RunAt         time.Time
	FilesScanned  int
	OrphanedFiles int
	FilesDeleted  int
	DurationMs    int64
	Errors        []string
}

// GCStorage defines the database reads needed for garbage collection.
type GCStorage interface {
	GetAllFilePaths(ctx context.Context) ([]string, error)
	GetAllMediaIds(ctx context.Context) ([]domain.MediaId, error)
}

// GCMediaStorage defines the filesystem operations needed for garbage collection.
type GCMediaStorage interface {
	WalkFiles() ([]string, error)
	GetFileModTime(filePath string) (time.Time, error)
	DeleteFile(filePath string) error
	// ConversionOwner reports which media a conversion file belongs to.
	ConversionOwner(filePath string) (domain.MediaId, bool)
}

// safetyThreshold is the minimum age of a file before it may be deleted, so
// uploads whose record is not committed yet survive.
func NewMediaGarbageCollector(storage GCStorage, mediaStorage GCMediaStorage, safetyThreshold time.Duration) *MediaGarbageCollector {
	return &MediaGarbageCollector{
		storage:         storage,
		mediaStorage:    mediaStorage,
		safetyThreshold: safetyThreshold,
		now:             time.Now,
	}
}

// Run cleans up every interval until ctx is cancelled.
func (gc *MediaGarbageCollector) Run(ctx context.Context, interval time.Duration) error {
	log := logger.Component("media_gc")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info("started", "interval", interval, "safety_threshold", gc.safetyThreshold)

	for {
		select {
		case <-ticker.C:
			if err := gc.RunCleanup(ctx); err != nil {
				log.Error("cleanup failed", "error", err)
				continue
			}
			stats := gc.GetLastCleanupStats()
			log.Info("cleanup completed",
				"scanned", stats.FilesScanned,
				"orphans", stats.OrphanedFiles,
				"deleted", stats.FilesDeleted,
				"duration_ms", stats.DurationMs,
				"errors", len(stats.Errors))
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		}
	}
}

// RunCleanup executes a single garbage collection cycle.
func (gc *MediaGarbageCollector) RunCleanup(ctx context.Context) error {
	startTime := gc.now()
	stats := CleanupStats{RunAt: startTime, Errors: []string{}}

	dbPaths, err := gc.storage.GetAllFilePaths(ctx)
	if err != nil {
		return err
	}
	dbPathSet := make(map[string]bool, len(dbPaths))
	for _, path := range dbPaths {
		dbPathSet[filepath.ToSlash(path)] = true
	}

	ids, err := gc.storage.GetAllMediaIds(ctx)
	if err != nil {
		return err
	}
	idSet := make(map[domain.MediaId]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	fsPaths, err := gc.mediaStorage.WalkFiles()
	if err != nil {
		return err
	}
	stats.FilesScanned = len(fsPaths)

	for _, fsPath := range fsPaths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if dbPathSet[filepath.ToSlash(fsPath)] {
			continue
		}
		// conversions live as long as their media record
		if id, ok := gc.mediaStorage.ConversionOwner(fsPath); ok && idSet[id] {
			continue
		}

		modTime, err := gc.mediaStorage.GetFileModTime(fsPath)
		if err != nil {
			stats.Errors = append(stats.Errors, "stat error: "+fsPath+": "+err.Error())
			continue
		}
		if gc.now().Sub(modTime) < gc.safetyThreshold {
			continue
		}

		stats.OrphanedFiles++
		if err := gc.mediaStorage.DeleteFile(fsPath); err != nil {
			stats.Errors = append(stats.Errors, "delete error: "+fsPath+": "+err.Error())
			continue
		}
		stats.FilesDeleted++
	}

	stats.DurationMs = gc.now().Sub(startTime).Milliseconds()
	gc.lastCleanupStats = stats
	return nil
}

func (gc *MediaGarbageCollector) GetLastCleanupStats() CleanupStats {
	return gc.lastCleanupStats
}

package tasks

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/kindle-enex/internal/entities"
)

const defaultRetentionDays = 30

// ConversionCleaner lists and deletes conversion history older than a cutoff.
type ConversionCleaner interface {
	ListBefore(olderThan time.Time) ([]entities.Conversion, error)
	DeleteBefore(olderThan time.Time) (int64, error)
}

// AuditCleaner deletes audit snapshots older than a cutoff.
type AuditCleaner interface {
	DeleteBefore(olderThan time.Time) (int, error)
}

// CleanupConversionsTask removes conversion history, the .enex files it points
// at and audit snapshots older than the retention period.
type CleanupConversionsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for conversion cleanup tasks.
func (t CleanupConversionsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_conversions",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupConversionsProcessor creates a processor function for CleanupConversionsTask.
// auditCleaner may be nil when auditing is disabled.
func CleanupConversionsProcessor(cleaner ConversionCleaner, auditCleaner AuditCleaner) backlite.QueueProcessor[CleanupConversionsTask] {
	return func(ctx context.Context, task CleanupConversionsTask) error {
		if cleaner == nil {
			return fmt.Errorf("conversion cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = defaultRetentionDays
		}
		cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

		stale, err := cleaner.ListBefore(cutoff)
		if err != nil {
			return fmt.Errorf("list old conversions: %w", err)
		}

		removedFiles := 0
		for _, conversion := range stale {
			if err := ctx.Err(); err != nil {
				return err
			}
			if conversion.FilePath == "" {
				continue
			}
			err := os.Remove(conversion.FilePath)
			switch {
			case err == nil:
				removedFiles++
			case os.IsNotExist(err):
			default:
				log.Printf("[TASK] Failed to remove export %s: %v", conversion.FilePath, err)
				continue
			}
			removeExportDir(conversion)
		}

		deleted, err := cleaner.DeleteBefore(cutoff)
		if err != nil {
			return fmt.Errorf("cleanup conversions: %w", err)
		}

		auditDeleted := 0
		if auditCleaner != nil {
			auditDeleted, err = auditCleaner.DeleteBefore(cutoff)
			if err != nil {
				return fmt.Errorf("cleanup audit snapshots: %w", err)
			}
		}

		log.Printf("[TASK] Cleaned up %d conversions, %d export files and %d audit snapshots older than %d days",
			deleted, removedFiles, auditDeleted, retentionDays)
		return nil
	}
}

// removeExportDir drops the per-conversion directory once its export is gone.
// Exports written without history live directly in the output directory,
// which is left alone.
func removeExportDir(conversion entities.Conversion) {
	dir := filepath.Dir(conversion.FilePath)
	if conversion.PublicID == "" || filepath.Base(dir) != conversion.PublicID {
		return
	}
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		log.Printf("[TASK] Failed to remove export directory %s: %v", dir, err)
	}
}

// NewCleanupConversionsQueue creates a backlite queue for conversion cleanup tasks.
func NewCleanupConversionsQueue(cleaner ConversionCleaner, auditCleaner AuditCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupConversionsProcessor(cleaner, auditCleaner))
}

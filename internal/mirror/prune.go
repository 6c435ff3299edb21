package mirror

import (
	"context"
	"fmt"
	"time"

	"db-auto-backup/internal/logger"

	"go.uber.org/zap"
)

const (
	listTimeout   = 30 * time.Second
	deleteTimeout = 10 * time.Second
)

// ObjectStore is the subset of bucket operations retention pruning needs.
type ObjectStore interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectMeta, error)
	DeleteObject(ctx context.Context, key string) error
}

// Pruner deletes mirrored backups older than the retention period. With
// dryRun set it only reports what would be deleted.
type Pruner struct {
	store     ObjectStore
	retention time.Duration
	dryRun    bool
}

// NewPruner returns a pruner over the given store. A retention of zero or
// less disables pruning.
func NewPruner(store ObjectStore, retention time.Duration, dryRun bool) *Pruner {
	return &Pruner{store: store, retention: retention, dryRun: dryRun}
}

// Prune removes objects past the retention cutoff and returns how many
// were affected. Individual delete failures are collected; the remaining
// objects are still processed.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	if p.retention <= 0 {
		logger.Log.Debug("Retention pruning disabled")
		return 0, nil
	}

	listCtx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	objects, err := p.store.ListObjects(listCtx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list mirrored backups: %w", err)
	}
	if len(objects) == 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-p.retention)
	affected := 0
	var reclaimed int64
	var failed []string

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return affected, err
		}
		if !obj.LastModified.Before(cutoff) {
			logger.Log.Debug("Mirrored backup within retention, keeping",
				zap.String("key", obj.Key),
				zap.Time("lastModified", obj.LastModified),
			)
			continue
		}

		if p.dryRun {
			logger.Log.Info("[DryRun] Would delete mirrored backup",
				zap.String("key", obj.Key),
				zap.Int64("size", obj.Size),
			)
			affected++
			reclaimed += obj.Size
			continue
		}

		deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeout)
		err := p.store.DeleteObject(deleteCtx, obj.Key)
		cancel()
		if err != nil {
			logger.Log.Error("Failed to delete mirrored backup",
				zap.String("key", obj.Key),
				zap.Error(err),
			)
			failed = append(failed, obj.Key)
			continue
		}
		affected++
		reclaimed += obj.Size
	}

	logger.Log.Info("Retention prune completed",
		zap.Int("objectsConsidered", len(objects)),
		zap.Int("objectsAffected", affected),
		zap.Int64("bytesReclaimed", reclaimed),
		zap.Bool("dryRun", p.dryRun),
		zap.Int("failedDeletes", len(failed)),
	)

	if len(failed) > 0 {
		return affected, fmt.Errorf("retention prune completed with %d failures: %v", len(failed), failed)
	}
	return affected, nil
}

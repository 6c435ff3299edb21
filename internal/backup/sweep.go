package backup

import (
	"os"
	"path/filepath"
	"time"

	"db-auto-backup/internal/logger"

	"go.uber.org/zap"
)

// SweepStaleTemps removes temporary files left behind by interrupted runs
// and returns how many were deleted. Only files older than maxAge are
// touched so an in-flight backup is never removed.
func SweepStaleTemps(dir string, maxAge time.Duration) int {
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	if err != nil {
		logger.Log.Warn("Failed to scan for stale temporary files",
			zap.String("dir", dir),
			zap.Error(err),
		)
		return 0
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logger.Log.Warn("Failed to remove stale temporary file",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		logger.Log.Info("Removed stale temporary file", zap.String("path", path))
		removed++
	}
	return removed
}

package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"db-auto-backup/internal/compress"
	"db-auto-backup/internal/logger"
	"db-auto-backup/internal/model"
	"db-auto-backup/internal/provider"

	"go.uber.org/zap"
)

const backupFileMode = 0600

// Executor streams container dumps through the configured compression
// algorithm into files under dir. A backup becomes visible under its final
// name only after it has been written and synced completely.
type Executor struct {
	rt        provider.Runtime
	dir       string
	algorithm compress.Algorithm
	timeout   time.Duration
}

// NewExecutor returns an executor writing into dir. A timeout of zero
// disables the per-container deadline.
func NewExecutor(rt provider.Runtime, dir string, algorithm compress.Algorithm, timeout time.Duration) *Executor {
	return &Executor{rt: rt, dir: dir, algorithm: algorithm, timeout: timeout}
}

// Filename returns the file name a container's backup is stored under.
func (e *Executor) Filename(c model.Container, p provider.Provider) string {
	return c.DisplayName() + "." + p.Extension + e.algorithm.Suffix()
}

// Run backs up one container and reports the outcome. Failures never leave
// a partial file behind and never touch a previously completed backup.
func (e *Executor) Run(ctx context.Context, c model.Container, p provider.Provider) model.Result {
	start := time.Now()
	res := model.Result{
		ContainerID:   c.ID,
		ContainerName: c.DisplayName(),
		Provider:      p.Name,
		Path:          filepath.Join(e.dir, e.Filename(c, p)),
	}

	err := e.writeBackup(ctx, c, p, &res)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		logger.Log.Error("Backup failed",
			zap.String("containerName", res.ContainerName),
			zap.String("provider", p.Name),
			zap.Duration("duration", res.Duration),
			zap.Error(err),
		)
		return res
	}

	logger.Log.Info("Backup completed",
		zap.String("containerName", res.ContainerName),
		zap.String("provider", p.Name),
		zap.String("path", res.Path),
		zap.Int64("bytes", res.BytesWritten),
		zap.Duration("duration", res.Duration),
	)
	return res
}

func (e *Executor) writeBackup(ctx context.Context, c model.Container, p provider.Provider, res *model.Result) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	tmp, err := os.CreateTemp(e.dir, filepath.Base(res.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	moved := false
	defer func() {
		if !moved {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	onDisk := &countingWriter{w: tmp}
	encoder, err := e.algorithm.NewWriter(onDisk)
	if err != nil {
		return fmt.Errorf("failed to create %s writer: %w", e.algorithm, err)
	}

	raw := &countingWriter{w: encoder}
	if err := p.Backup(ctx, e.rt, c, raw); err != nil {
		encoder.Close()
		return fmt.Errorf("backup command failed: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s stream: %w", e.algorithm, err)
	}
	if raw.n == 0 {
		return errors.New("backup command produced no data")
	}

	if err := tmp.Chmod(backupFileMode); err != nil {
		return fmt.Errorf("failed to set backup permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync backup file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close backup file: %w", err)
	}
	if err := os.Rename(tmpName, res.Path); err != nil {
		return fmt.Errorf("failed to move backup into place: %w", err)
	}
	moved = true
	res.BytesWritten = onDisk.n
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

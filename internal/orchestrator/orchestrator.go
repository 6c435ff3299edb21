package orchestrator

import (
	"context"
	"fmt"
	"time"

	"db-auto-backup/internal/logger"
	"db-auto-backup/internal/model"
	"db-auto-backup/internal/provider"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runtime lists the containers eligible for backup.
type Runtime interface {
	ListRunning(ctx context.Context) ([]model.Container, error)
}

// Backupper names backup files and performs single-container backups.
type Backupper interface {
	Filename(c model.Container, p provider.Provider) string
	Run(ctx context.Context, c model.Container, p provider.Provider) model.Result
}

// Notifier pings the success hook after a fully successful run.
type Notifier interface {
	Notify(ctx context.Context) error
}

// Mirror uploads a finished backup file to remote storage.
type Mirror interface {
	Upload(ctx context.Context, path string) error
}

// Options wire an orchestrator. Notifier, Mirror, and Precheck are
// optional.
type Options struct {
	Runtime  Runtime
	Registry *provider.Registry
	Executor Backupper
	Notifier Notifier
	Mirror   Mirror
	Precheck func() error
	Limit    int
}

// Orchestrator drives one backup run, from container discovery through
// the aggregated report.
type Orchestrator struct {
	runtime  Runtime
	registry *provider.Registry
	executor Backupper
	notifier Notifier
	mirror   Mirror
	precheck func() error
	limit    int
}

func New(opts Options) *Orchestrator {
	limit := opts.Limit
	if limit < 1 {
		limit = 1
	}
	return &Orchestrator{
		runtime:  opts.Runtime,
		registry: opts.Registry,
		executor: opts.Executor,
		notifier: opts.Notifier,
		mirror:   opts.Mirror,
		precheck: opts.Precheck,
		limit:    limit,
	}
}

type task struct {
	container model.Container
	provider  provider.Provider
}

// Run performs one full backup pass. The returned error covers failures
// of the run itself (discovery, preconditions); individual container
// failures are folded into the report instead.
func (o *Orchestrator) Run(ctx context.Context) (model.Report, error) {
	report := model.Report{Started: time.Now()}

	if o.precheck != nil {
		if err := o.precheck(); err != nil {
			return report, fmt.Errorf("refusing to start backup run: %w", err)
		}
	}

	containers, err := o.runtime.ListRunning(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to discover containers: %w", err)
	}
	logger.Log.Info("Discovered running containers", zap.Int("count", len(containers)))

	tasks := o.plan(containers, &report)

	results := make([]model.Result, len(tasks))
	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.limit)
	for i, tk := range tasks {
		i, tk := i, tk
		g.Go(func() error {
			res := o.executor.Run(runCtx, tk.container, tk.provider)
			if res.Err == nil && o.mirror != nil {
				if err := o.mirror.Upload(runCtx, res.Path); err != nil {
					logger.Log.Error("Failed to mirror backup",
						zap.String("containerName", res.ContainerName),
						zap.String("path", res.Path),
						zap.Error(err),
					)
					res.Err = fmt.Errorf("failed to mirror backup: %w", err)
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	for _, res := range results {
		report.Add(res)
	}
	report.Finished = time.Now()

	logger.Log.Info("Backup run finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Finished.Sub(report.Started)),
	)

	if report.Failed == 0 && o.notifier != nil {
		if err := o.notifier.Notify(ctx); err != nil {
			logger.Log.Warn("Success notification failed", zap.Error(err))
		}
	}
	return report, nil
}

// plan matches containers to providers and claims a backup file name for
// each. Containers without a provider are recorded as skipped; a container
// whose file name is already claimed fails instead of overwriting the
// earlier claimant's backup.
func (o *Orchestrator) plan(containers []model.Container, report *model.Report) []task {
	var tasks []task
	claimed := make(map[string]string)

	for _, c := range containers {
		candidates := provider.Candidates(c)
		p, ok := o.registry.Match(candidates)
		if !ok {
			logger.Log.Debug("No backup provider for container, skipping",
				zap.String("containerName", c.DisplayName()),
				zap.Strings("candidates", candidates),
			)
			report.Add(model.Result{
				ContainerID:   c.ID,
				ContainerName: c.DisplayName(),
				Skipped:       true,
			})
			continue
		}

		filename := o.executor.Filename(c, p)
		if owner, dup := claimed[filename]; dup {
			err := fmt.Errorf("backup file name %s already claimed by container %s", filename, owner)
			logger.Log.Error("Backup file name collision",
				zap.String("containerName", c.DisplayName()),
				zap.String("filename", filename),
				zap.String("claimedBy", owner),
			)
			report.Add(model.Result{
				ContainerID:   c.ID,
				ContainerName: c.DisplayName(),
				Provider:      p.Name,
				Err:           err,
			})
			continue
		}
		claimed[filename] = c.DisplayName()

		logger.Log.Info("Matched container to provider",
			zap.String("containerName", c.DisplayName()),
			zap.String("provider", p.Name),
		)
		tasks = append(tasks, task{container: c, provider: p})
	}
	return tasks
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"db-auto-backup/internal/backup"
	"db-auto-backup/internal/config"
	"db-auto-backup/internal/docker"
	"db-auto-backup/internal/logger"
	"db-auto-backup/internal/mirror"
	"db-auto-backup/internal/model"
	"db-auto-backup/internal/notify"
	"db-auto-backup/internal/orchestrator"
	"db-auto-backup/internal/provider"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// components bundles everything one backup run needs so a SIGHUP reload
// can swap the whole set atomically.
type components struct {
	cfg    config.Config
	orch   *orchestrator.Orchestrator
	pruner *mirror.Pruner
}

func buildComponents(ctx context.Context, client *docker.Client) (*components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.BackupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	registry := provider.NewRegistry()
	for name, patterns := range cfg.CustomPatterns {
		if err := registry.ExtendPatterns(name, patterns); err != nil {
			logger.Log.Error("Ignoring custom patterns for unknown provider",
				zap.String("provider", name),
				zap.Error(err),
			)
		}
	}

	opts := orchestrator.Options{
		Runtime:  client,
		Registry: registry,
		Executor: backup.NewExecutor(client, cfg.BackupDir, cfg.Compression, cfg.BackupTimeout),
		Notifier: notify.NewPinger(notify.HookURL()),
		Precheck: func() error { return backup.CheckDiskSpace(cfg.BackupDir) },
		Limit:    cfg.ConcurrentLimit,
	}

	comp := &components{cfg: cfg}
	if cfg.Mirror.Enabled() {
		uploader, err := mirror.NewUploader(ctx, mirror.Options{
			Bucket:          cfg.Mirror.Bucket,
			Region:          cfg.Mirror.Region,
			Endpoint:        cfg.Mirror.Endpoint,
			AccessKeyID:     cfg.Mirror.AccessKeyID,
			SecretAccessKey: cfg.Mirror.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 mirror: %w", err)
		}
		opts.Mirror = uploader
		comp.pruner = mirror.NewPruner(uploader, cfg.Mirror.Retention(), cfg.Mirror.RetentionDryRun)
	}

	comp.orch = orchestrator.New(opts)
	return comp, nil
}

// runBackups performs one full pass and prunes mirrored backups after a
// fully successful run.
func (c *components) runBackups(ctx context.Context) (model.Report, error) {
	report, err := c.orch.Run(ctx)
	if err != nil {
		return report, err
	}
	if report.Failed == 0 && c.pruner != nil {
		if _, err := c.pruner.Prune(ctx); err != nil {
			logger.Log.Error("Retention prune failed", zap.Error(err))
		}
	}
	return report, nil
}

func main() {
	if err := godotenv.Load(); err == nil {
		logger.Log.Info("Loaded environment from .env file")
	}

	logger.Log.Info("DB auto-backup agent starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := docker.NewClient(ctx)
	if err != nil {
		logger.Log.Fatal("Failed to connect to docker daemon", zap.Error(err))
	}
	defer client.Close()

	comp, err := buildComponents(ctx, client)
	if err != nil {
		logger.Log.Fatal("Failed to initialize agent", zap.Error(err))
	}

	backup.SweepStaleTemps(comp.cfg.BackupDir, comp.cfg.BackupTimeout)

	if comp.cfg.RunOnce() {
		logger.Log.Info("No schedule configured, running a single backup pass")
		report, err := comp.runBackups(ctx)
		if err != nil {
			logger.Log.Fatal("Backup run failed", zap.Error(err))
		}
		logger.Close()
		os.Exit(report.ExitCode())
	}

	runDaemon(ctx, cancel, client, comp)

	logger.Log.Info("DB auto-backup agent stopped.")
	logger.Close()
}

func runDaemon(ctx context.Context, cancel context.CancelFunc, client *docker.Client, comp *components) {
	var mu sync.RWMutex
	active := comp
	var lastReport *model.Report

	runJob := func() {
		mu.RLock()
		current := active
		mu.RUnlock()

		report, err := current.runBackups(ctx)
		if err != nil {
			logger.Log.Error("Backup run failed", zap.Error(err))
			return
		}
		mu.Lock()
		lastReport = &report
		mu.Unlock()
	}

	startCron := func(schedule string) (*cron.Cron, error) {
		cronLogger := logger.NewCronZapLogger(logger.Log.Named("cron"))
		sched := cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		)
		if _, err := sched.AddFunc(schedule, runJob); err != nil {
			return nil, fmt.Errorf("failed to schedule backups: %w", err)
		}
		sched.Start()
		logger.Log.Info("Backup schedule active", zap.String("schedule", schedule))
		return sched, nil
	}

	stopCron := func(sched *cron.Cron) {
		stopCtx := sched.Stop()
		<-stopCtx.Done()
	}

	sched, err := startCron(comp.cfg.Schedule)
	if err != nil {
		logger.Log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	hmux := http.NewServeMux()
	hmux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok")
	})

	hmux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		reqCtx, reqCancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer reqCancel()

		var checks []string
		healthy := true

		if err := client.Ping(reqCtx); err != nil {
			checks = append(checks, fmt.Sprintf("Docker: %v", err))
			healthy = false
		} else {
			checks = append(checks, "Docker: OK")
		}

		mu.RLock()
		dir := active.cfg.BackupDir
		mu.RUnlock()
		if err := backup.CheckDiskSpace(dir); err != nil {
			checks = append(checks, fmt.Sprintf("Disk: %v", err))
			healthy = false
		} else {
			checks = append(checks, "Disk: OK")
		}

		if healthy {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "ready\n%s", strings.Join(checks, "\n"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "not ready\n%s", strings.Join(checks, "\n"))
		}
	})

	hmux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		report := lastReport
		mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if report == nil {
			json.NewEncoder(w).Encode(map[string]string{"status": "no completed runs yet"})
			return
		}
		json.NewEncoder(w).Encode(report)
	})

	server := &http.Server{
		Addr:    comp.cfg.HealthAddr,
		Handler: hmux,
	}

	go func() {
		logger.Log.Info("Serving HTTP endpoints", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

Loop:
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				logger.Log.Info("Received SIGHUP, reloading configuration...")
				newComp, err := buildComponents(ctx, client)
				if err != nil {
					logger.Log.Error("Configuration reload failed, keeping previous configuration", zap.Error(err))
					continue
				}
				if newComp.cfg.RunOnce() {
					mu.RLock()
					newComp.cfg.Schedule = active.cfg.Schedule
					mu.RUnlock()
					logger.Log.Warn("Reloaded configuration has no schedule, keeping the current one",
						zap.String("schedule", newComp.cfg.Schedule),
					)
				}

				newSched, err := startCron(newComp.cfg.Schedule)
				if err != nil {
					logger.Log.Error("Failed to apply reloaded schedule, keeping previous configuration", zap.Error(err))
					continue
				}

				mu.Lock()
				active = newComp
				mu.Unlock()
				stopCron(sched)
				sched = newSched
				logger.Log.Info("Configuration reloaded successfully")
			case syscall.SIGINT, syscall.SIGTERM:
				logger.Log.Info("Shutdown signal received, stopping agent...")
				cancel()
				break Loop
			}
		case <-ctx.Done():
			break Loop
		}
	}

	logger.Log.Info("Cleaning up components...")
	stopCron(sched)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("HTTP server shutdown failed", zap.Error(err))
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"db-auto-backup/internal/compress"
	"db-auto-backup/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	EnvBackupDir       = "BACKUP_DIR"
	EnvCompression     = "COMPRESSION"
	EnvSchedule        = "SCHEDULE"
	EnvConcurrentLimit = "CONCURRENT_BACKUP_LIMIT"
	EnvBackupTimeout   = "BACKUP_TIMEOUT"
	EnvHealthAddr      = "HEALTH_ADDR"

	EnvBucketName      = "BUCKET_NAME"
	EnvRegion          = "REGION"
	EnvEndpoint        = "ENDPOINT"
	EnvAccessKeyID     = "ACCESS_KEY_ID"
	EnvSecretAccessKey = "SECRET_ACCESS_KEY"
	EnvRetentionDays   = "RETENTION_DAYS"
	EnvRetentionDryRun = "RETENTION_DRY_RUN"

	DefaultBackupDir       = "/var/backups"
	DefaultConcurrentLimit = 1
	DefaultBackupTimeout   = 10 * time.Minute
	DefaultHealthAddr      = ":8080"
	DefaultRetentionDays   = 7

	customPatternPrefix = "CUSTOM_BACKUP_PROVIDER_"
	customPatternSuffix = "_PATTERNS"
)

// Mirror holds the optional S3 mirroring settings. Mirroring is enabled by
// setting a bucket name.
type Mirror struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
	RetentionDryRun bool
}

func (m Mirror) Enabled() bool {
	return m.Bucket != ""
}

func (m Mirror) Retention() time.Duration {
	return time.Duration(m.RetentionDays) * 24 * time.Hour
}

// Config is the full agent configuration, read from the environment.
type Config struct {
	BackupDir       string
	Compression     compress.Algorithm
	Schedule        string
	ConcurrentLimit int
	BackupTimeout   time.Duration
	HealthAddr      string
	CustomPatterns  map[string][]string
	Mirror          Mirror
}

// RunOnce reports whether the agent should back up once and exit instead
// of running on a schedule.
func (c Config) RunOnce() bool {
	return c.Schedule == ""
}

// Load reads the configuration from the environment. All validation
// problems are collected into a single error so a broken deployment is
// reported completely on the first start.
func Load() (Config, error) {
	cfg := Config{
		BackupDir:       DefaultBackupDir,
		Compression:     compress.Plain,
		ConcurrentLimit: DefaultConcurrentLimit,
		BackupTimeout:   DefaultBackupTimeout,
		HealthAddr:      DefaultHealthAddr,
	}
	var problems []string

	if dir := getTrimmedEnv(EnvBackupDir); dir != "" {
		cfg.BackupDir = dir
	}

	algorithm, err := compress.ParseAlgorithm(getTrimmedEnv(EnvCompression))
	if err != nil {
		problems = append(problems, fmt.Sprintf("invalid %s: %v", EnvCompression, err))
	} else {
		cfg.Compression = algorithm
	}

	if schedule := getTrimmedEnv(EnvSchedule); schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			problems = append(problems, fmt.Sprintf("invalid %s expression %q: %v", EnvSchedule, schedule, err))
		} else {
			cfg.Schedule = schedule
		}
	}

	if limitStr := getTrimmedEnv(EnvConcurrentLimit); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			problems = append(problems, fmt.Sprintf("invalid %s %q: must be a positive integer", EnvConcurrentLimit, limitStr))
		} else {
			cfg.ConcurrentLimit = limit
		}
	}

	if timeoutStr := getTrimmedEnv(EnvBackupTimeout); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil || timeout <= 0 {
			problems = append(problems, fmt.Sprintf("invalid %s %q: must be a positive duration", EnvBackupTimeout, timeoutStr))
		} else {
			cfg.BackupTimeout = timeout
		}
	}

	if addr := getTrimmedEnv(EnvHealthAddr); addr != "" {
		cfg.HealthAddr = addr
	}

	cfg.CustomPatterns = customPatterns(os.Environ())

	cfg.Mirror = Mirror{
		Bucket:          getTrimmedEnv(EnvBucketName),
		Region:          getTrimmedEnv(EnvRegion),
		Endpoint:        getTrimmedEnv(EnvEndpoint),
		AccessKeyID:     getTrimmedEnv(EnvAccessKeyID),
		SecretAccessKey: getTrimmedEnv(EnvSecretAccessKey),
		RetentionDays:   DefaultRetentionDays,
	}
	if daysStr := getTrimmedEnv(EnvRetentionDays); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days < 0 {
			problems = append(problems, fmt.Sprintf("invalid %s %q: must be a non-negative integer", EnvRetentionDays, daysStr))
		} else {
			cfg.Mirror.RetentionDays = days
		}
	}
	dryRun := strings.ToLower(getTrimmedEnv(EnvRetentionDryRun))
	cfg.Mirror.RetentionDryRun = dryRun == "true" || dryRun == "1"

	if len(problems) > 0 {
		return cfg, fmt.Errorf("configuration validation failed:\n%s", strings.Join(problems, "\n"))
	}

	logger.Log.Info("Configuration loaded",
		zap.String("backupDir", cfg.BackupDir),
		zap.String("compression", string(cfg.Compression)),
		zap.String("schedule", cfg.Schedule),
		zap.Int("concurrentLimit", cfg.ConcurrentLimit),
		zap.Duration("backupTimeout", cfg.BackupTimeout),
		zap.Bool("mirrorEnabled", cfg.Mirror.Enabled()),
	)
	return cfg, nil
}

func getTrimmedEnv(key string) string {
	val := strings.TrimSpace(os.Getenv(key))
	return strings.Trim(val, "\\\"")
}

// customPatterns extracts CUSTOM_BACKUP_PROVIDER_<NAME>_PATTERNS entries
// from the environment. Provider names are lowercased, values are
// comma-separated pattern lists.
func customPatterns(environ []string) map[string][]string {
	out := make(map[string][]string)
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, customPatternPrefix) || !strings.HasSuffix(key, customPatternSuffix) {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, customPatternPrefix), customPatternSuffix)
		if name == "" {
			continue
		}
		patterns := splitPatterns(value)
		if len(patterns) == 0 {
			continue
		}
		out[strings.ToLower(name)] = patterns
	}
	return out
}

func splitPatterns(value string) []string {
	parts := strings.Split(value, ",")
	patterns := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

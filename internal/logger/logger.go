package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger

func getLogLevelFromEnv() zapcore.Level {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	var level zapcore.Level

	switch levelStr {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	case "dpanic":
		level = zapcore.DPanicLevel
	case "panic":
		level = zapcore.PanicLevel
	case "fatal":
		level = zapcore.FatalLevel
	default:
		level = zapcore.InfoLevel
		if levelStr != "" && levelStr != "info" {
			fmt.Fprintf(os.Stderr, "Warning: Invalid LOG_LEVEL '%s', using INFO\n", levelStr)
		}
	}

	return level
}

func init() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", r)
			Log = zap.NewNop()
		}
	}()

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(config)

	logLevel := getLogLevelFromEnv()

	core := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), logLevel)

	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

func Close() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}

// CronZapLogger adapts the zap logger to the cron.Logger interface.
type CronZapLogger struct {
	logger *zap.Logger
}

func NewCronZapLogger(logger *zap.Logger) *CronZapLogger {
	return &CronZapLogger{logger: logger}
}

func (czl *CronZapLogger) Info(msg string, keysAndValues ...interface{}) {
	fields := czl.formatKeysAndValues(keysAndValues...)
	czl.logger.Info(msg, fields...)
}

func (czl *CronZapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := czl.formatKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	czl.logger.Error(msg, fields...)
}

func (czl *CronZapLogger) formatKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field

	if len(keysAndValues)%2 != 0 {
		czl.logger.Warn("Odd number of arguments passed to logger",
			zap.Int("count", len(keysAndValues)),
			zap.Any("args", keysAndValues),
		)
	}

	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("unknown_key_%d", i/2)
		}
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "<missing_value>"))
		}
	}
	return fields
}

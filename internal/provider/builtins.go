package provider

import (
	"context"
	"fmt"
	"io"

	"db-auto-backup/internal/logger"
	"db-auto-backup/internal/model"

	"go.uber.org/zap"
)

// Environment variables read from the target container's configuration.
const (
	envPostgresUser        = "POSTGRES_USER"
	envMariaDBRootPassword = "MARIADB_ROOT_PASSWORD"
	envMySQLRootPassword   = "MYSQL_ROOT_PASSWORD"
	envMongoRootUsername   = "MONGO_INITDB_ROOT_USERNAME"
	envMongoRootPassword   = "MONGO_INITDB_ROOT_PASSWORD"
)

// builtins returns the built-in providers in precedence order.
func builtins() []Provider {
	return []Provider{
		{
			Name: "postgres",
			Patterns: []string{
				"postgres",
				"tensorchord/pgvecto-rs",
				"nextcloud/aio-postgresql",
				"pgautoupgrade/pgautoupgrade",
			},
			Backup:    backupPostgres,
			Extension: "sql",
		},
		{
			Name:      "mysql",
			Patterns:  []string{"mysql", "mariadb", "linuxserver/mariadb"},
			Backup:    backupMySQL,
			Extension: "sql",
		},
		{
			Name:      "sqlite",
			Patterns:  []string{"sqlite"},
			Backup:    backupSQLite,
			Extension: "sql",
		},
		{
			Name:      "redis",
			Patterns:  []string{"redis"},
			Backup:    backupRedis,
			Extension: "rdb",
		},
		{
			Name:      "mongodb",
			Patterns:  []string{"mongo", "mongodb"},
			Backup:    backupMongoDB,
			Extension: "archive",
		},
	}
}

func backupPostgres(ctx context.Context, rt Runtime, c model.Container, out io.Writer) error {
	user, ok := c.EnvValue(envPostgresUser)
	if !ok || user == "" {
		user = "postgres"
	}
	logger.Log.Debug("Running pg_dumpall",
		zap.String("containerName", c.Name),
		zap.String("user", user),
	)
	return rt.Exec(ctx, c.ID, []string{"pg_dumpall", "-U", user}, out)
}

func backupMySQL(ctx context.Context, rt Runtime, c model.Container, out io.Writer) error {
	// The root password variable is expanded by the shell inside the
	// container; its value is never read on the host.
	var passwordVar string
	switch {
	case hasEnv(c, envMariaDBRootPassword):
		passwordVar = envMariaDBRootPassword
	case hasEnv(c, envMySQLRootPassword):
		passwordVar = envMySQLRootPassword
	default:
		return fmt.Errorf("container %s: neither %s nor %s is set", c.DisplayName(), envMariaDBRootPassword, envMySQLRootPassword)
	}
	script := fmt.Sprintf(`mysqldump --all-databases -uroot -p"$%s"`, passwordVar)
	logger.Log.Debug("Running mysqldump",
		zap.String("containerName", c.Name),
		zap.String("passwordVariable", passwordVar),
	)
	return rt.Exec(ctx, c.ID, []string{"sh", "-c", script}, out)
}

func backupSQLite(ctx context.Context, rt Runtime, c model.Container, out io.Writer) error {
	script := `sqlite3 "${SQLITE_DATABASE:-/data/db.sqlite3}" .dump`
	return rt.Exec(ctx, c.ID, []string{"sh", "-c", script}, out)
}

func backupRedis(ctx context.Context, rt Runtime, c model.Container, out io.Writer) error {
	return rt.Exec(ctx, c.ID, []string{"redis-cli", "--rdb", "/dev/stdout"}, out)
}

func backupMongoDB(ctx context.Context, rt Runtime, c model.Container, out io.Writer) error {
	if hasEnv(c, envMongoRootUsername) && hasEnv(c, envMongoRootPassword) {
		script := fmt.Sprintf(
			`mongodump --archive --username "$%s" --password "$%s" --authenticationDatabase admin`,
			envMongoRootUsername, envMongoRootPassword,
		)
		return rt.Exec(ctx, c.ID, []string{"sh", "-c", script}, out)
	}
	return rt.Exec(ctx, c.ID, []string{"mongodump", "--archive"}, out)
}

func hasEnv(c model.Container, key string) bool {
	_, ok := c.EnvValue(key)
	return ok
}

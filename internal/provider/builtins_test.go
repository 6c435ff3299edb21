package provider

import (
	"context"
	"io"
	"strings"
	"testing"

	"db-auto-backup/internal/model"
)

// execRecorder is a Runtime that records commands and plays back canned
// output.
type execRecorder struct {
	cmds   [][]string
	output string
	err    error
}

func (r *execRecorder) Exec(ctx context.Context, containerID string, cmd []string, stdout io.Writer) error {
	r.cmds = append(r.cmds, cmd)
	if r.err != nil {
		return r.err
	}
	if r.output != "" {
		if _, err := io.WriteString(stdout, r.output); err != nil {
			return err
		}
	}
	return nil
}

func (r *execRecorder) lastCmd(t *testing.T) []string {
	t.Helper()
	if len(r.cmds) == 0 {
		t.Fatal("no command was executed")
	}
	return r.cmds[len(r.cmds)-1]
}

func equalCmd(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestBackupPostgresCommand(t *testing.T) {
	tests := []struct {
		name string
		env  []string
		want []string
	}{
		{
			name: "default user",
			env:  nil,
			want: []string{"pg_dumpall", "-U", "postgres"},
		},
		{
			name: "user from container env",
			env:  []string{"POSTGRES_USER=admin", "POSTGRES_DB=app"},
			want: []string{"pg_dumpall", "-U", "admin"},
		},
		{
			name: "empty user falls back to default",
			env:  []string{"POSTGRES_USER="},
			want: []string{"pg_dumpall", "-U", "postgres"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &execRecorder{}
			c := model.Container{ID: "c1", Name: "db", Env: tt.env}
			if err := backupPostgres(context.Background(), rec, c, io.Discard); err != nil {
				t.Fatalf("backupPostgres() error: %v", err)
			}
			if got := rec.lastCmd(t); !equalCmd(got, tt.want) {
				t.Errorf("backupPostgres() ran %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackupMySQLCommand(t *testing.T) {
	tests := []struct {
		name    string
		env     []string
		wantVar string
	}{
		{
			name:    "mariadb password",
			env:     []string{"MARIADB_ROOT_PASSWORD=secret"},
			wantVar: "MARIADB_ROOT_PASSWORD",
		},
		{
			name:    "mysql password",
			env:     []string{"MYSQL_ROOT_PASSWORD=secret"},
			wantVar: "MYSQL_ROOT_PASSWORD",
		},
		{
			name:    "mariadb wins over mysql",
			env:     []string{"MYSQL_ROOT_PASSWORD=one", "MARIADB_ROOT_PASSWORD=two"},
			wantVar: "MARIADB_ROOT_PASSWORD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &execRecorder{}
			c := model.Container{ID: "c1", Name: "db", Env: tt.env}
			if err := backupMySQL(context.Background(), rec, c, io.Discard); err != nil {
				t.Fatalf("backupMySQL() error: %v", err)
			}
			cmd := rec.lastCmd(t)
			if len(cmd) != 3 || cmd[0] != "sh" || cmd[1] != "-c" {
				t.Fatalf("backupMySQL() ran %v, want a shell command", cmd)
			}
			script := cmd[2]
			if !strings.Contains(script, "mysqldump --all-databases -uroot") {
				t.Errorf("script %q is missing the mysqldump invocation", script)
			}
			if !strings.Contains(script, "$"+tt.wantVar) {
				t.Errorf("script %q does not expand %s", script, tt.wantVar)
			}
			if strings.Contains(script, "secret") || strings.Contains(script, "one") || strings.Contains(script, "two") {
				t.Errorf("script %q contains a literal password", script)
			}
		})
	}
}

func TestBackupMySQLWithoutPassword(t *testing.T) {
	rec := &execRecorder{}
	c := model.Container{ID: "c1", Name: "db", Env: []string{"MYSQL_DATABASE=app"}}
	if err := backupMySQL(context.Background(), rec, c, io.Discard); err == nil {
		t.Fatal("backupMySQL() succeeded without a root password, want error")
	}
	if len(rec.cmds) != 0 {
		t.Errorf("backupMySQL() executed %v without a root password", rec.cmds)
	}
}

func TestBackupSQLiteCommand(t *testing.T) {
	rec := &execRecorder{}
	c := model.Container{ID: "c1", Name: "db"}
	if err := backupSQLite(context.Background(), rec, c, io.Discard); err != nil {
		t.Fatalf("backupSQLite() error: %v", err)
	}
	cmd := rec.lastCmd(t)
	if len(cmd) != 3 || cmd[0] != "sh" || cmd[1] != "-c" {
		t.Fatalf("backupSQLite() ran %v, want a shell command", cmd)
	}
	if !strings.Contains(cmd[2], "SQLITE_DATABASE") || !strings.Contains(cmd[2], "/data/db.sqlite3") {
		t.Errorf("script %q is missing the database path default", cmd[2])
	}
}

func TestBackupRedisCommand(t *testing.T) {
	rec := &execRecorder{}
	c := model.Container{ID: "c1", Name: "cache"}
	if err := backupRedis(context.Background(), rec, c, io.Discard); err != nil {
		t.Fatalf("backupRedis() error: %v", err)
	}
	want := []string{"redis-cli", "--rdb", "/dev/stdout"}
	if got := rec.lastCmd(t); !equalCmd(got, want) {
		t.Errorf("backupRedis() ran %v, want %v", got, want)
	}
}

func TestBackupMongoDBCommand(t *testing.T) {
	t.Run("without credentials", func(t *testing.T) {
		rec := &execRecorder{}
		c := model.Container{ID: "c1", Name: "mongo"}
		if err := backupMongoDB(context.Background(), rec, c, io.Discard); err != nil {
			t.Fatalf("backupMongoDB() error: %v", err)
		}
		want := []string{"mongodump", "--archive"}
		if got := rec.lastCmd(t); !equalCmd(got, want) {
			t.Errorf("backupMongoDB() ran %v, want %v", got, want)
		}
	})

	t.Run("with root credentials", func(t *testing.T) {
		rec := &execRecorder{}
		c := model.Container{
			ID:   "c1",
			Name: "mongo",
			Env:  []string{"MONGO_INITDB_ROOT_USERNAME=root", "MONGO_INITDB_ROOT_PASSWORD=hunter2"},
		}
		if err := backupMongoDB(context.Background(), rec, c, io.Discard); err != nil {
			t.Fatalf("backupMongoDB() error: %v", err)
		}
		cmd := rec.lastCmd(t)
		if len(cmd) != 3 || cmd[0] != "sh" || cmd[1] != "-c" {
			t.Fatalf("backupMongoDB() ran %v, want a shell command", cmd)
		}
		script := cmd[2]
		if !strings.Contains(script, "--authenticationDatabase admin") {
			t.Errorf("script %q is missing the authentication database", script)
		}
		if strings.Contains(script, "hunter2") {
			t.Errorf("script %q contains a literal password", script)
		}
	})
}

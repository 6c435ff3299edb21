package provider

import (
	"strings"
	"testing"

	"db-auto-backup/internal/model"
)

func TestNormalizeImageRef(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{
			name: "plain tagged image",
			ref:  "postgres:14-alpine",
			want: "postgres",
		},
		{
			name: "docker hub registry host",
			ref:  "docker.io/postgres:14-alpine",
			want: "postgres",
		},
		{
			name: "ghcr registry with namespace",
			ref:  "ghcr.io/realorangeone/db-auto-backup:latest",
			want: "realorangeone/db-auto-backup",
		},
		{
			name: "stacked tag segments",
			ref:  "theorangeone/db-auto-backup:latest:latest",
			want: "theorangeone/db-auto-backup",
		},
		{
			name: "lscr registry",
			ref:  "lscr.io/linuxserver/mariadb:latest",
			want: "linuxserver/mariadb",
		},
		{
			name: "explicit library namespace with host",
			ref:  "docker.io/library/postgres:14-alpine",
			want: "postgres",
		},
		{
			name: "explicit library namespace",
			ref:  "library/postgres:14-alpine",
			want: "postgres",
		},
		{
			name: "namespaced image",
			ref:  "pgautoupgrade/pgautoupgrade:15-alpine",
			want: "pgautoupgrade/pgautoupgrade",
		},
		{
			name: "untagged image",
			ref:  "redis",
			want: "redis",
		},
		{
			name: "digested image",
			ref:  "nginx@sha256:" + strings.Repeat("a", 64),
			want: "nginx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeImageRef(tt.ref)
			if !ok {
				t.Fatalf("normalizeImageRef(%q) failed, want %q", tt.ref, tt.want)
			}
			if got != tt.want {
				t.Errorf("normalizeImageRef(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestNormalizeImageRefUnparseable(t *testing.T) {
	refs := []string{"", "Uppercase/Image:tag", ":latest"}
	for _, ref := range refs {
		if got, ok := normalizeImageRef(ref); ok {
			t.Errorf("normalizeImageRef(%q) = %q, want failure", ref, got)
		}
	}
}

func TestCandidates(t *testing.T) {
	c := model.Container{
		ID:       "abc123",
		Name:     "/my_database",
		Image:    "postgres:14-alpine",
		RepoTags: []string{"docker.io/library/postgres:14-alpine", "postgres:14-alpine"},
	}

	got := Candidates(c)
	want := []string{"my_database", "postgres"}
	if len(got) != len(want) {
		t.Fatalf("Candidates() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Candidates()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCandidatesKeepsRawContainerName(t *testing.T) {
	// Underscores are preserved for matching; they are only rewritten in
	// backup file names.
	c := model.Container{Name: "compose_stack_db_1"}
	got := Candidates(c)
	if len(got) != 1 || got[0] != "compose_stack_db_1" {
		t.Errorf("Candidates() = %v, want [compose_stack_db_1]", got)
	}
}

func TestCandidatesSkipsUnparseableRefs(t *testing.T) {
	c := model.Container{
		Name:     "broken",
		Image:    "Not A Ref",
		RepoTags: []string{"lscr.io/linuxserver/mariadb:latest"},
	}
	got := Candidates(c)
	want := []string{"broken", "linuxserver/mariadb"}
	if len(got) != len(want) {
		t.Fatalf("Candidates() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Candidates()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

package model

import (
	"strings"
	"time"
)

// Container describes one running container as reported by the runtime.
type Container struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Image    string   `json:"image"`
	RepoTags []string `json:"repo_tags,omitempty"`
	Env      []string `json:"-"`
}

// DisplayName is the identity used for backup filenames: the declared
// container name with underscores replaced by hyphens. It is never used
// for provider matching.
func (c Container) DisplayName() string {
	return strings.ReplaceAll(strings.TrimPrefix(c.Name, "/"), "_", "-")
}

// EnvValue looks up a variable in the container's environment.
func (c Container) EnvValue(key string) (string, bool) {
	prefix := key + "="
	for _, kv := range c.Env {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):], true
		}
	}
	return "", false
}

// Result is the outcome of one container's backup attempt. It is finalized
// once and never mutated afterwards.
type Result struct {
	ContainerID   string        `json:"container_id"`
	ContainerName string        `json:"container_name"`
	Provider      string        `json:"provider,omitempty"`
	Path          string        `json:"path,omitempty"`
	BytesWritten  int64         `json:"bytes_written"`
	Duration      time.Duration `json:"duration_ns"`
	Skipped       bool          `json:"skipped"`
	Error         string        `json:"error,omitempty"`
	Err           error         `json:"-"`
}

// Report aggregates the results of one run.
type Report struct {
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Succeeded int       `json:"succeeded"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Results   []Result  `json:"results"`
}

// Add folds one result into the report's counters.
func (r *Report) Add(res Result) {
	if res.Err != nil {
		res.Error = res.Err.Error()
	}
	r.Results = append(r.Results, res)
	switch {
	case res.Err != nil:
		r.Failed++
	case res.Skipped:
		r.Skipped++
	default:
		r.Succeeded++
	}
}

// ExitCode maps the report onto the process exit status: zero only when
// no container failed. Skipped containers do not count as failures.
func (r Report) ExitCode() int {
	if r.Failed > 0 {
		return 2
	}
	return 0
}

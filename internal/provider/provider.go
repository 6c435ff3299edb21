package provider

import (
	"context"
	"fmt"
	"io"
	"strings"

	"db-auto-backup/internal/logger"
	"db-auto-backup/internal/model"

	"go.uber.org/zap"
)

// Runtime executes a command inside a running container and streams its
// stdout into the writer. A non-zero command exit is returned as an error
// carrying the command's stderr.
type Runtime interface {
	Exec(ctx context.Context, containerID string, cmd []string, stdout io.Writer) error
}

// BackupFunc runs a provider's dump command inside one container and writes
// the raw dump bytes to out.
type BackupFunc func(ctx context.Context, rt Runtime, c model.Container, out io.Writer) error

// Provider maps a database engine family to its dump command and output
// file extension. Providers are immutable values; behavior differences live
// in the Backup function, not in a type hierarchy.
type Provider struct {
	Name      string
	Patterns  []string
	Backup    BackupFunc
	Extension string // without the leading dot
}

// Registry holds providers in registration order. The order is the match
// precedence: the first registered provider with a matching pattern wins.
type Registry struct {
	providers []Provider
}

// NewRegistry returns a registry populated with the built-in providers.
func NewRegistry() *Registry {
	return &Registry{providers: builtins()}
}

// ExtendPatterns appends custom patterns to the named provider. An unknown
// name leaves the registry unchanged and returns an error for the caller
// to report; it never aborts a run.
func (r *Registry) ExtendPatterns(name string, patterns []string) error {
	for i := range r.providers {
		if strings.EqualFold(r.providers[i].Name, name) {
			r.providers[i].Patterns = append(r.providers[i].Patterns, patterns...)
			logger.Log.Info("Extended provider patterns",
				zap.String("provider", r.providers[i].Name),
				zap.Strings("patterns", patterns),
			)
			return nil
		}
	}
	return fmt.Errorf("no backup provider named %q", name)
}

// Match returns the first provider with a pattern equal to any candidate.
// Comparison is case-insensitive full-string equality, never substring.
func (r *Registry) Match(candidates []string) (Provider, bool) {
	for _, p := range r.providers {
		for _, pattern := range p.Patterns {
			for _, candidate := range candidates {
				if strings.EqualFold(pattern, candidate) {
					return p, true
				}
			}
		}
	}
	return Provider{}, false
}

// Providers returns a copy of the registry contents in precedence order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

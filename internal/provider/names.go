package provider

import (
	"strings"

	"db-auto-backup/internal/logger"
	"db-auto-backup/internal/model"

	"github.com/distribution/reference"
	"go.uber.org/zap"
)

// Candidates returns the identity strings a container may be matched by:
// its declared name plus the normalized repository of every image
// reference it carries. Duplicates are removed, order is preserved.
func Candidates(c model.Container) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	add(strings.TrimPrefix(c.Name, "/"))

	refs := append([]string{}, c.RepoTags...)
	if c.Image != "" {
		refs = append(refs, c.Image)
	}
	for _, ref := range refs {
		name, ok := normalizeImageRef(ref)
		if !ok {
			logger.Log.Debug("Ignoring unparseable image reference",
				zap.String("containerName", c.Name),
				zap.String("ref", ref),
			)
			continue
		}
		add(name)
	}
	return out
}

// normalizeImageRef reduces an image reference to its bare repository:
// the registry host, tag, and digest are dropped and the default library/
// namespace is stripped. References with stacked tag segments
// (repo:latest:latest) are retried once with the final segment removed.
func normalizeImageRef(ref string) (string, bool) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		if i := strings.LastIndex(ref, ":"); i > 0 {
			named, err = reference.ParseNormalizedNamed(ref[:i])
		}
		if err != nil {
			return "", false
		}
	}
	return strings.TrimPrefix(reference.Path(named), "library/"), true
}

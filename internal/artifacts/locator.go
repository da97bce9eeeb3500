package artifacts

import (
	"os"
	"path/filepath"

	"autolaunch/internal/model"
)

// Latest returns the regular file in dir (non-recursive) matching pattern with
// the newest modification time. Symlinks are followed. Equal timestamps resolve to the greater name.
// A missing or unreadable directory, a bad pattern, or no match all yield false.
func Latest(dir string, pattern string) (model.ArtifactRef, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return model.ArtifactRef{}, false
	}
	var (
		best  model.ArtifactRef
		found bool
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matched, err := filepath.Match(pattern, entry.Name())
		if err != nil {
			return model.ArtifactRef{}, false
		}
		if !matched {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		candidate := model.ArtifactRef{
			Name:       entry.Name(),
			Path:       path,
			ModifiedAt: info.ModTime(),
		}
		if !found || newer(candidate, best) {
			best = candidate
			found = true
		}
	}
	return best, found
}

func newer(a model.ArtifactRef, b model.ArtifactRef) bool {
	if a.ModifiedAt.Equal(b.ModifiedAt) {
		return a.Name > b.Name
	}
	return a.ModifiedAt.After(b.ModifiedAt)
}

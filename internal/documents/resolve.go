package documents

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Resolve returns the file in dir with extension ext whose base name is
// closest to hint. Matches further than a third of the hint's length are
// rejected and reported as false.
func Resolve(dir, hint, ext string) (string, bool) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	entries, err := os.ReadDir(dir)
	if err != nil || hint == "" {
		return "", false
	}

	best, bestDist := "", -1
	for _, e := range entries {
		if e.IsDir() || TypeOf(e.Name()) != ext {
			continue
		}
		base := strings.ToLower(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		d := levenshtein.ComputeDistance(hint, base)
		if bestDist < 0 || d < bestDist {
			best, bestDist = e.Name(), d
		}
	}
	if best == "" || bestDist > len(hint)/3 {
		return "", false
	}
	return filepath.Join(dir, best), true
}

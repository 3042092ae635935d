package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vizlake/vizlake/pkg/apierr"
)

// PathPolicy validates dataset paths before anything is parsed: the path
// must exist, be a regular file, sit under an allow-listed root when roots
// are configured, and stay under the byte ceiling when one is set.
type PathPolicy struct {
	AllowedRoots []string
	MaxBytes     int64
}

// Validate resolves pathStr and enforces the policy. The size ceiling is
// checked here so oversized files are rejected before any parsing happens.
func (p PathPolicy) Validate(pathStr string) (string, error) {
	if pathStr == "" {
		return "", apierr.InvalidRequest("path is required")
	}
	if strings.HasPrefix(pathStr, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			pathStr = filepath.Join(home, strings.TrimPrefix(pathStr, "~"))
		}
	}

	info, err := os.Stat(pathStr)
	if err != nil {
		return "", apierr.InvalidRequest(fmt.Sprintf("path not found: %s", pathStr))
	}
	if info.IsDir() {
		return "", apierr.InvalidRequest("expected a file path, received directory")
	}

	resolved, err := filepath.Abs(pathStr)
	if err != nil {
		return "", apierr.InvalidRequest(fmt.Sprintf("invalid path: %s", pathStr))
	}

	if len(p.AllowedRoots) > 0 {
		allowed := false
		for _, root := range p.AllowedRoots {
			absRoot, err := filepath.Abs(root)
			if err != nil {
				continue
			}
			rel, err := filepath.Rel(absRoot, resolved)
			if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", apierr.InvalidRequest("path not allowed by server configuration")
		}
	}

	if p.MaxBytes > 0 && info.Size() > p.MaxBytes {
		return "", apierr.DataTooLarge(fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), p.MaxBytes))
	}

	return resolved, nil
}

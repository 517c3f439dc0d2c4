package download

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const dirPerm = 0o755

// DownloadsDir resolves the directory runs write into: the override when set,
// otherwise the user's platform downloads directory.
func DownloadsDir(override string) (string, error) {
	dir := override
	if dir == "" {
		dir = xdg.UserDirs.Download
	}

	if dir == "" {
		return "", fmt.Errorf("no downloads directory configured and none found for this platform")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve downloads directory %s: %w", dir, err)
	}

	return abs, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create downloads directory: %w", err)
	}

	return nil
}

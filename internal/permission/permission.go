// Package permission answers "may this process write to the downloads
// directory?". The answer may change at any time, so callers ask right before
// they write.
package permission

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrDenied is wrapped by every Checker when write access is refused.
var ErrDenied = errors.New("write permission denied")

type Checker interface {
	CanWrite(ctx context.Context, dir string) error
}

// Static always returns the same decision.
type Static struct {
	Granted bool
}

func (s Static) CanWrite(_ context.Context, dir string) error {
	if s.Granted {
		return nil
	}

	return fmt.Errorf("%s: %w", dir, ErrDenied)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, dir string) error

func (f CheckerFunc) CanWrite(ctx context.Context, dir string) error { return f(ctx, dir) }

// DirChecker checks the real filesystem. A directory that does not exist yet is
// judged by its nearest existing ancestor, since that is where it will be created.
type DirChecker struct{}

func (DirChecker) CanWrite(_ context.Context, dir string) error {
	target, err := nearestExisting(dir)
	if err != nil {
		return err
	}

	if err := writable(target); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%s: %w", target, ErrDenied)
		}

		return fmt.Errorf("failed to check write access to %s: %w", target, err)
	}

	return nil
}

func nearestExisting(dir string) (string, error) {
	p, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for {
		info, err := os.Stat(p)
		if err == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("%s is not a directory", p)
			}

			return p, nil
		}

		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to stat %s: %w", p, err)
		}

		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("no existing ancestor for %s", dir)
		}

		p = parent
	}
}

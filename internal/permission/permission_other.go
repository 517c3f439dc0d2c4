//go:build !unix

package permission

import "os"

func writable(dir string) error {
	f, err := os.CreateTemp(dir, ".fetchd-probe-*")
	if err != nil {
		return err
	}

	name := f.Name()
	f.Close()

	return os.Remove(name)
}

package repo

import (
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// writeFileAtomic writes data to path via tempfile, fsync and rename in the
// same directory, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (retErr error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return multierr.Append(err, f.Close())
	}
	if err := f.Sync(); err != nil {
		return multierr.Append(err, f.Close())
	}
	if err := f.Chmod(perm); err != nil {
		return multierr.Append(err, f.Close())
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/hpn/pkg/object"
	"go.uber.org/zap"
)

// Checkout switches the work tree to target, which is tried first as a
// branch name and then as a full commit hash. Anything else fails with
// ErrInvalidTarget.
func (r *Repo) Checkout(target string) (Head, error) {
	target = strings.TrimSpace(target)
	if ValidateBranchName(target) == nil {
		_, err := r.Refs.ReadRef(BranchRef(target))
		switch {
		case err == nil:
			return r.SwitchBranch(target)
		case !errors.Is(err, object.ErrNotFound):
			return Head{}, fmt.Errorf("checkout %q: %w", target, err)
		}
	}
	if _, err := object.ParseHash(target); err != nil {
		return Head{}, fmt.Errorf("checkout %q: %w: not a branch or commit", target, ErrInvalidTarget)
	}
	return r.SwitchDetached(object.Hash(target))
}

// Restore writes the tree at treeHash into target, recursively. Every blob
// is written over whatever exists at its path: local modifications and
// untracked files at those paths are lost, and a directory standing where a
// file belongs (or the reverse) is replaced. Paths not named by the tree are
// left untouched. target itself may be a symlink to a directory; links
// below it are replaced.
func (r *Repo) Restore(treeHash object.Hash, target string) error {
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		if err := ensureDir(target); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	return r.restoreDir(treeHash, target)
}

func (r *Repo) restoreDir(treeHash object.Hash, dir string) error {
	tr, err := r.Store.ReadTree(treeHash)
	if err != nil {
		return fmt.Errorf("restore: read tree %s: %w", treeHash, err)
	}

	for _, entry := range tr.Entries {
		dest := filepath.Join(dir, entry.Name)
		if dest == r.MetaDir {
			return fmt.Errorf("restore: %w: tree %s writes into %s", object.ErrCorrupt, treeHash, MetaDirName)
		}

		objType, data, err := r.Store.Get(entry.Hash)
		if err != nil {
			return fmt.Errorf("restore %q: %w", dest, err)
		}
		if (objType == object.TypeTree) != entry.IsDir() {
			return fmt.Errorf("restore %q: %w: mode %s holds a %s", dest, object.ErrCorrupt, entry.Mode, objType)
		}

		switch objType {
		case object.TypeBlob:
			if err := writeFileForce(dest, data); err != nil {
				return fmt.Errorf("restore %q: %w: %w", dest, object.ErrIO, err)
			}
			r.Logger.Debug("restored file", zap.String("path", dest), zap.Int("size", len(data)))
		case object.TypeTree:
			if err := ensureDir(dest); err != nil {
				return fmt.Errorf("restore %q: %w", dest, err)
			}
			if err := r.restoreDir(entry.Hash, dest); err != nil {
				return err
			}
		default:
			return fmt.Errorf("restore %q: %w: unexpected %s in tree", dest, object.ErrCorrupt, objType)
		}
	}
	return nil
}

// ensureDir makes path a directory, removing a file or symlink in the way.
func ensureDir(path string) error {
	info, err := os.Lstat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("%w: %w", object.ErrIO, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", object.ErrIO, err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("%w: %w", object.ErrIO, err)
	}
	return nil
}

// writeFileForce writes data at path. A directory or symlink at path is
// removed first so the write never lands outside path.
func writeFileForce(path string, data []byte) error {
	info, err := os.Lstat(path)
	switch {
	case err == nil && info.IsDir():
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	case err == nil && !info.Mode().IsRegular():
		if err := os.Remove(path); err != nil {
			return err
		}
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

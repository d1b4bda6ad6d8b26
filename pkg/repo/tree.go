package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/odvcencio/hpn/pkg/object"
	"go.uber.org/zap"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path     string
	BlobHash object.Hash
}

// BuildTree snapshots the directory at dir: regular files become blobs,
// subdirectories become trees, recursively and bottom-up. Paths excluded by
// r.Ignore are skipped. Symbolic links and special files are skipped, never
// followed. It returns the hash of the tree for dir.
//
// Building an unchanged directory again yields the same hash and writes no
// new objects.
func (r *Repo) BuildTree(dir string) (object.Hash, error) {
	return r.buildTreeDir(dir, "")
}

// WriteTree snapshots the whole work tree.
func (r *Repo) WriteTree() (object.Hash, error) {
	return r.BuildTree(r.RootDir)
}

func (r *Repo) buildTreeDir(absDir, rel string) (object.Hash, error) {
	dirEntries, err := os.ReadDir(absDir)
	if err != nil {
		return "", fmt.Errorf("build tree %q: %w: %w", displayPath(rel), object.ErrIO, err)
	}

	entries := make([]object.TreeEntry, 0, len(dirEntries))
	for _, d := range dirEntries {
		name := d.Name()
		childRel := path.Join(rel, name)
		childAbs := filepath.Join(absDir, name)

		if r.Ignore != nil && r.Ignore.IsIgnored(childRel, d.IsDir()) {
			continue
		}

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			r.Logger.Debug("skipping symlink", zap.String("path", childRel))
		case d.IsDir():
			subHash, err := r.buildTreeDir(childAbs, childRel)
			if err != nil {
				return "", err
			}
			entries = append(entries, object.TreeEntry{
				Name: name,
				Mode: object.TreeModeDir,
				Hash: subHash,
			})
		case d.Type().IsRegular():
			data, err := os.ReadFile(childAbs)
			if err != nil {
				return "", fmt.Errorf("build tree: read %q: %w: %w", childRel, object.ErrIO, err)
			}
			blobHash, err := r.Store.Put(object.TypeBlob, data)
			if err != nil {
				return "", fmt.Errorf("build tree: blob %q: %w", childRel, err)
			}
			entries = append(entries, object.TreeEntry{
				Name: name,
				Mode: object.TreeModeFile,
				Hash: blobHash,
			})
		default:
			r.Logger.Debug("skipping special file", zap.String("path", childRel), zap.Stringer("mode", d.Type()))
		}
	}

	// WriteTree sorts entries by name, so ReadDir order never reaches the hash.
	h, err := r.Store.WriteTree(&object.TreeObj{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("write tree %q: %w", displayPath(rel), err)
	}
	return h, nil
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full paths (using forward slashes).
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := path.Join(prefix, entry.Name)
		if entry.IsDir() {
			sub, err := r.flattenTreeRec(entry.Hash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
			continue
		}
		result = append(result, TreeFileEntry{
			Path:     fullPath,
			BlobHash: entry.Hash,
		})
	}
	return result, nil
}

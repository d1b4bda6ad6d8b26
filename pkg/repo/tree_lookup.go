package repo

import (
	"fmt"
	"strings"

	"github.com/odvcencio/hpn/pkg/object"
)

// TreeEntryAtPath walks slash-separated relPath down from treeHash and
// returns the entry it names, which may be a file or a directory. found is
// false when any component is missing or a file sits where a directory is
// needed.
func (r *Repo) TreeEntryAtPath(treeHash object.Hash, relPath string) (entry object.TreeEntry, found bool, err error) {
	relPath = strings.Trim(relPath, "/")
	if relPath == "" {
		return object.TreeEntry{Mode: object.TreeModeDir, Hash: treeHash}, true, nil
	}
	parts := strings.Split(relPath, "/")
	current := treeHash

	for i, part := range parts {
		treeObj, err := r.Store.ReadTree(current)
		if err != nil {
			return object.TreeEntry{}, false, fmt.Errorf("read tree %s: %w", current, err)
		}

		found = false
		for _, te := range treeObj.Entries {
			if te.Name == part {
				entry = te
				found = true
				break
			}
		}
		if !found {
			return object.TreeEntry{}, false, nil
		}
		if i == len(parts)-1 {
			return entry, true, nil
		}
		if !entry.IsDir() {
			return object.TreeEntry{}, false, nil
		}
		current = entry.Hash
	}
	return object.TreeEntry{}, false, nil
}

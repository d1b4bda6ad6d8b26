package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	ts := time.Unix(1700000000, 0)
	return func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	}
}

// realTempDir returns a temp dir with symlinks in its path resolved, the
// form Init and Open report as RootDir.
func realTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	return dir
}

func initRepo(t *testing.T, opts ...Option) *Repo {
	t.Helper()
	dir := t.TempDir()
	r, err := Init(dir, append([]Option{WithClock(fixedClock())}, opts...)...)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return r
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// snapshotDir maps slash-separated relative paths to file contents,
// skipping the metadata directory.
func snapshotDir(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == MetaDirName {
			return filepath.SkipDir
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return out
}

func countLooseObjects(t *testing.T, r *Repo) int {
	t.Helper()
	report, err := r.Store.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	return report.Objects
}

func assertDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected directory %s to exist: %v", path, err)
	}
	if !info.IsDir() {
		t.Fatalf("expected %s to be a directory", path)
	}
}

package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/odvcencio/hpn/pkg/object"
)

func TestRestore_RoundTripIntoEmptyDir(t *testing.T) {
	r := initRepo(t)
	writeFile(t, filepath.Join(r.RootDir, "README"), "readme\n")
	writeFile(t, filepath.Join(r.RootDir, "src", "main.go"), "package main\n")
	writeFile(t, filepath.Join(r.RootDir, "src", "lib", "lib.go"), "package lib\n")
	writeFile(t, filepath.Join(r.RootDir, "bin", "data"), string([]byte{0, 1, 2, 0xff}))

	treeHash, err := r.WriteTree()
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	dest := t.TempDir()
	if err := r.Restore(treeHash, dest); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if diff := cmp.Diff(snapshotDir(t, r.RootDir), snapshotDir(t, dest)); diff != "" {
		t.Errorf("restored tree mismatch (-want +got):\n%s", diff)
	}

	again, err := r.BuildTree(dest)
	if err != nil {
		t.Fatalf("BuildTree(dest): %v", err)
	}
	if again != treeHash {
		t.Errorf("tree of restored dir = %s, want %s", again, treeHash)
	}
}

func TestRestore_ForceOverwrites(t *testing.T) {
	r := initRepo(t)
	writeFile(t, filepath.Join(r.RootDir, "a.txt"), "committed")
	writeFile(t, filepath.Join(r.RootDir, "d", "b.txt"), "nested")
	treeHash, err := r.WriteTree()
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	dest := t.TempDir()
	writeFile(t, filepath.Join(dest, "a.txt"), "local edit")
	// A file where the tree has a directory, and an untracked file.
	writeFile(t, filepath.Join(dest, "d"), "in the way")
	writeFile(t, filepath.Join(dest, "untracked.txt"), "keep me")

	if err := r.Restore(treeHash, dest); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := readFile(t, filepath.Join(dest, "a.txt")); got != "committed" {
		t.Errorf("a.txt = %q, want committed", got)
	}
	if got := readFile(t, filepath.Join(dest, "d", "b.txt")); got != "nested" {
		t.Errorf("d/b.txt = %q, want nested", got)
	}
	if got := readFile(t, filepath.Join(dest, "untracked.txt")); got != "keep me" {
		t.Errorf("untracked.txt = %q, want it left alone", got)
	}
}

func TestRestore_ReplacesDirectoryWithFile(t *testing.T) {
	r := initRepo(t)
	writeFile(t, filepath.Join(r.RootDir, "x"), "file")
	treeHash, err := r.WriteTree()
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	dest := t.TempDir()
	writeFile(t, filepath.Join(dest, "x", "inner.txt"), "old")
	if err := r.Restore(treeHash, dest); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	info, err := os.Lstat(filepath.Join(dest, "x"))
	if err != nil {
		t.Fatalf("Lstat: %v", err)
	}
	if !info.Mode().IsRegular() {
		t.Fatalf("x mode = %v, want regular file", info.Mode())
	}
	if got := readFile(t, filepath.Join(dest, "x")); got != "file" {
		t.Errorf("x = %q", got)
	}
}

func TestRestore_EmptyDirectory(t *testing.T) {
	r := initRepo(t)
	if err := os.MkdirAll(filepath.Join(r.RootDir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	treeHash, err := r.WriteTree()
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	dest := t.TempDir()
	if err := r.Restore(treeHash, dest); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	assertDir(t, filepath.Join(dest, "empty"))
}

func TestRestore_ModeMismatchIsCorrupt(t *testing.T) {
	r := initRepo(t)
	blob, err := r.Store.WriteBlob(&object.Blob{Data: []byte("data")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	bad, err := r.Store.WriteTree(&object.TreeObj{Entries: []object.TreeEntry{
		{Name: "dir", Mode: object.TreeModeDir, Hash: blob},
	}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	if err := r.Restore(bad, t.TempDir()); !errors.Is(err, object.ErrCorrupt) {
		t.Errorf("Restore err = %v, want ErrCorrupt", err)
	}
}

func TestRestore_MissingTree(t *testing.T) {
	r := initRepo(t)
	missing := object.HashObject(object.TypeTree, []byte("gone"))
	if err := r.Restore(missing, t.TempDir()); !errors.Is(err, object.ErrNotFound) {
		t.Errorf("Restore err = %v, want ErrNotFound", err)
	}
}

func TestCheckout_BranchThenHash(t *testing.T) {
	r := initRepo(t)
	path := filepath.Join(r.RootDir, "f.txt")
	writeFile(t, path, "one")
	h1, err := r.Commit("one")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := r.CreateBranch("dev"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	writeFile(t, path, "two")
	if _, err := r.Commit("two"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	head, err := r.Checkout("master")
	if err != nil {
		t.Fatalf("Checkout(master): %v", err)
	}
	if head.Branch() != "master" || readFile(t, path) != "one" {
		t.Errorf("after checkout master: head=%+v f.txt=%q", head, readFile(t, path))
	}

	if _, err := r.Checkout("dev"); err != nil {
		t.Fatalf("Checkout(dev): %v", err)
	}
	head, err = r.Checkout(string(h1))
	if err != nil {
		t.Fatalf("Checkout(%s): %v", h1, err)
	}
	if !head.IsDetached() || head.Hash != h1 || readFile(t, path) != "one" {
		t.Errorf("after detached checkout: head=%+v f.txt=%q", head, readFile(t, path))
	}

	for _, target := range []string{"no-such-branch", "feature]", string(object.HashObject(object.TypeCommit, []byte("x")))} {
		if _, err := r.Checkout(target); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("Checkout(%q) err = %v, want ErrInvalidTarget", target, err)
		}
	}
}

func TestSwitchBranch_SymlinkedWorkTree(t *testing.T) {
	realDir := realTempDir(t)
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}

	if _, err := Init(link, WithClock(fixedClock())); err != nil {
		t.Fatalf("Init: %v", err)
	}
	r, err := Open(link, WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	writeFile(t, filepath.Join(link, "f.txt"), "base")
	if _, err := r.Commit("first"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := r.CreateBranch("feature"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	writeFile(t, filepath.Join(link, "f.txt"), "feature")
	if _, err := r.Commit("second"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := r.SwitchBranch("master"); err != nil {
		t.Fatalf("SwitchBranch: %v", err)
	}

	info, err := os.Lstat(link)
	if err != nil {
		t.Fatalf("Lstat: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("work tree link replaced, mode = %v", info.Mode())
	}
	if got := readFile(t, filepath.Join(link, "f.txt")); got != "base" {
		t.Errorf("f.txt = %q, want base", got)
	}
	assertDir(t, filepath.Join(link, MetaDirName, "objects"))
}

func TestRestore_FollowsSymlinkedTarget(t *testing.T) {
	r := initRepo(t)
	writeFile(t, filepath.Join(r.RootDir, "a.txt"), "a")
	treeHash, err := r.WriteTree()
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	dest := realTempDir(t)
	writeFile(t, filepath.Join(dest, "keep.txt"), "keep")
	link := filepath.Join(t.TempDir(), "dest-link")
	if err := os.Symlink(dest, link); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}
	if err := r.Restore(treeHash, link); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := readFile(t, filepath.Join(dest, "a.txt")); got != "a" {
		t.Errorf("a.txt = %q", got)
	}
	if got := readFile(t, filepath.Join(dest, "keep.txt")); got != "keep" {
		t.Errorf("keep.txt = %q, want the target's contents preserved", got)
	}
}

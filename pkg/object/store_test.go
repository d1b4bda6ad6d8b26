package object

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "objects"))
}

func countObjects(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("walk: %v", err)
	}
	return n
}

func TestStorePutGet(t *testing.T) {
	s := tempStore(t)
	data := []byte("hello world")
	h, err := s.Put(TypeBlob, data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if h != HashObject(TypeBlob, data) {
		t.Errorf("Put hash = %s, want %s", h, HashObject(TypeBlob, data))
	}

	gotType, gotData, err := s.Get(h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotType != TypeBlob {
		t.Errorf("Type: got %q, want %q", gotType, TypeBlob)
	}
	if !bytes.Equal(gotData, data) {
		t.Errorf("Data: got %q, want %q", gotData, data)
	}
}

func TestStoreLayoutIsCompressedFanout(t *testing.T) {
	s := tempStore(t)
	h, err := s.Put(TypeBlob, []byte("hi"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	path := filepath.Join(s.Root(), string(h[:2]), string(h[2:]))
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("object file missing at %s: %v", path, err)
	}
	env, err := Decompress(raw)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(env) != "blob 2\x00hi" {
		t.Errorf("stored envelope = %q", env)
	}
}

func TestStorePutIdempotent(t *testing.T) {
	s := tempStore(t)
	h1, err := s.Put(TypeBlob, []byte("same"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	info1, err := os.Stat(s.objectPath(h1))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	h2, err := s.Put(TypeBlob, []byte("same"))
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hashes differ: %s vs %s", h1, h2)
	}
	if n := countObjects(t, s.Root()); n != 1 {
		t.Errorf("object files = %d, want 1", n)
	}
	info2, err := os.Stat(s.objectPath(h2))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !os.SameFile(info1, info2) {
		t.Error("second Put replaced the object file")
	}
}

func TestStoreConcurrentPutsSharedFanout(t *testing.T) {
	s := tempStore(t)

	// Find several payloads whose hashes share a fan-out directory.
	var payloads [][]byte
	prefix := ""
	for i := 0; len(payloads) < 4 && i < 100000; i++ {
		p := []byte{byte(i), byte(i >> 8), byte(i >> 16)}
		h := HashObject(TypeBlob, p)
		if prefix == "" {
			prefix = string(h[:2])
		}
		if string(h[:2]) == prefix {
			payloads = append(payloads, p)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(payloads)*4)
	for _, p := range payloads {
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func(p []byte) {
				defer wg.Done()
				if _, err := s.Put(TypeBlob, p); err != nil {
					errs <- err
				}
			}(p)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Put: %v", err)
	}

	for _, p := range payloads {
		h := HashObject(TypeBlob, p)
		_, data, err := s.Get(h)
		if err != nil {
			t.Fatalf("Get(%s): %v", h, err)
		}
		if !bytes.Equal(data, p) {
			t.Errorf("Get(%s) = %v, want %v", h, data, p)
		}
	}
	if n := countObjects(t, s.Root()); n != len(payloads) {
		t.Errorf("object files = %d, want %d", n, len(payloads))
	}
}

func TestStoreGetNotFound(t *testing.T) {
	s := tempStore(t)
	_, _, err := s.Get(HashObject(TypeBlob, []byte("missing")))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, _, err := s.Get("short"); !errors.Is(err, ErrNotFound) {
		t.Errorf("invalid hash: err = %v, want ErrNotFound", err)
	}
	if s.Has("short") {
		t.Error("Has(short) = true")
	}
}

func TestStoreGetCorrupt(t *testing.T) {
	s := tempStore(t)
	h := HashObject(TypeBlob, []byte("will be corrupted"))
	dir := filepath.Join(s.Root(), string(h[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(s.objectPath(h), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := s.Get(h); !errors.Is(err, ErrCorrupt) {
		t.Errorf("err = %v, want ErrCorrupt", err)
	}
}

func TestStoreTypedReadMismatch(t *testing.T) {
	s := tempStore(t)
	h, err := s.WriteBlob(&Blob{Data: []byte("not a commit")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if _, err := s.ReadCommit(h); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("ReadCommit err = %v, want ErrTypeMismatch", err)
	}
	b, err := s.ReadBlob(h)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(b.Data) != "not a commit" {
		t.Errorf("ReadBlob = %q", b.Data)
	}
}

func TestStoreTreeAndCommitRoundTrip(t *testing.T) {
	s := tempStore(t)
	blob, err := s.WriteBlob(&Blob{Data: []byte("hi")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	tree, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{{Name: "hello.txt", Mode: TreeModeFile, Hash: blob}}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	tr, err := s.ReadTree(tree)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	if len(tr.Entries) != 1 || tr.Entries[0].Hash != blob {
		t.Fatalf("ReadTree entries = %+v", tr.Entries)
	}

	ch, err := s.WriteCommit(&CommitObj{TreeHash: tree, Author: "a", AuthorTimezone: "+0000", Committer: "a", CommitterTimezone: "+0000", Message: "first"})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	c, err := s.ReadCommit(ch)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.TreeHash != tree || c.Message != "first" {
		t.Errorf("ReadCommit = %+v", c)
	}
}

func TestStoreVerify(t *testing.T) {
	s := tempStore(t)
	report, err := s.Verify()
	if err != nil {
		t.Fatalf("Verify empty store: %v", err)
	}
	if report.Objects != 0 {
		t.Errorf("Objects = %d, want 0", report.Objects)
	}

	for _, p := range []string{"a", "b", "c"} {
		if _, err := s.Put(TypeBlob, []byte(p)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	report, err = s.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Objects != 3 || report.ByType[TypeBlob] != 3 {
		t.Errorf("report = %+v", report)
	}

	// Store valid content under the wrong name.
	good := HashObject(TypeBlob, []byte("a"))
	bad := HashObject(TypeBlob, []byte("zzz"))
	raw, err := os.ReadFile(s.objectPath(good))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.objectPath(bad)), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(s.objectPath(bad), raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := s.Verify(); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Verify err = %v, want ErrCorrupt", err)
	}
}

func withoutHardLinks(t *testing.T) {
	t.Helper()
	orig := linkObject
	linkObject = func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: errors.ErrUnsupported}
	}
	t.Cleanup(func() { linkObject = orig })
}

func TestWriteOnce_RenameFallbackKeepsExisting(t *testing.T) {
	withoutHardLinks(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "object")
	if err := os.WriteFile(dest, []byte("first"), 0o444); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := writeOnce(dir, dest, []byte("second")); err != nil {
		t.Fatalf("writeOnce: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("dest = %q, want the existing object kept", got)
	}
	if n := countObjects(t, dir); n != 1 {
		t.Errorf("%d files in dir, want only dest (temp file leaked)", n)
	}
}

func TestStorePut_WithoutHardLinks(t *testing.T) {
	withoutHardLinks(t)
	s := tempStore(t)
	h, err := s.Put(TypeBlob, []byte("hi"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if h != "32f95c0d1244a78b2be1bab8de17906fabb2c4a8" {
		t.Errorf("hash = %s", h)
	}
	_, data, err := s.Get(h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(data, []byte("hi")) {
		t.Errorf("Get = %q", data)
	}
	if n := countObjects(t, s.Root()); n != 1 {
		t.Errorf("object count = %d, want 1", n)
	}
}

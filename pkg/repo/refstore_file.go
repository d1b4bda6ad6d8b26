package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/odvcencio/hpn/pkg/object"
	"go.uber.org/zap"
)

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
	refLockFileName   = "refs.lock"
)

// FileRefStore keeps HEAD and refs as plain files under the metadata
// directory, with a reflog under logs/.
type FileRefStore struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

// NewFileRefStore returns a FileRefStore rooted at metaDir.
func NewFileRefStore(metaDir string, opts ...RefStoreOption) *FileRefStore {
	o := newRefStoreOptions(opts)
	return &FileRefStore{dir: metaDir, now: o.now, logger: o.logger}
}

func (s *FileRefStore) headPath() string {
	return filepath.Join(s.dir, "HEAD")
}

func (s *FileRefStore) refPath(name string) string {
	return filepath.Join(s.dir, filepath.FromSlash(name))
}

// ReadHead reads .hpn/HEAD.
func (s *FileRefStore) ReadHead() (Head, error) {
	data, err := os.ReadFile(s.headPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Head{}, fmt.Errorf("read HEAD: %w", object.ErrNotFound)
		}
		return Head{}, fmt.Errorf("read HEAD: %w: %w", object.ErrIO, err)
	}
	return ParseHead(data)
}

// WriteHead atomically replaces .hpn/HEAD and records the move in the HEAD
// reflog.
func (s *FileRefStore) WriteHead(h Head, reason string) error {
	if h.IsDetached() {
		if _, err := object.ParseHash(string(h.Hash)); err != nil {
			return fmt.Errorf("write HEAD: %w", err)
		}
	} else if err := validateRefName(h.Ref); err != nil {
		return fmt.Errorf("write HEAD: %w", err)
	}

	oldHash := s.resolveQuiet()
	if err := writeFileAtomic(s.headPath(), h.Marshal(), 0o644); err != nil {
		return fmt.Errorf("write HEAD: %w: %w", object.ErrIO, err)
	}
	newHash := h.Hash
	if !h.IsDetached() {
		newHash = s.refHashForLog(h.Ref)
	}
	if err := s.appendReflog("HEAD", oldHash, newHash, reason); err != nil {
		return fmt.Errorf("write HEAD: %w", err)
	}
	return nil
}

// resolveQuiet resolves the current HEAD for a reflog entry, returning ""
// on any failure. A missing HEAD is expected before init; anything else is
// logged.
func (s *FileRefStore) resolveQuiet() object.Hash {
	head, err := s.ReadHead()
	if err != nil {
		if !errors.Is(err, object.ErrNotFound) {
			s.logger.Debug("reflog: unreadable HEAD", zap.Error(err))
		}
		return ""
	}
	if head.IsDetached() {
		return head.Hash
	}
	return s.refHashForLog(head.Ref)
}

// refHashForLog reads a ref for reflog bookkeeping, logging and discarding
// a read failure.
func (s *FileRefStore) refHashForLog(name string) object.Hash {
	h, err := s.readRefHash(name)
	if err != nil {
		s.logger.Debug("reflog: unreadable ref", zap.String("ref", name), zap.Error(err))
		return ""
	}
	return h
}

// ReadRef reads a ref file such as refs/heads/master.
func (s *FileRefStore) ReadRef(name string) (object.Hash, error) {
	if err := validateRefName(name); err != nil {
		return "", fmt.Errorf("read ref: %w", err)
	}
	h, err := s.readRefHash(name)
	if err != nil {
		return "", fmt.Errorf("read ref %q: %w", name, err)
	}
	if h == "" {
		return "", fmt.Errorf("read ref %q: %w", name, object.ErrNotFound)
	}
	return h, nil
}

// readRefHash returns "" without error when the ref file is absent.
func (s *FileRefStore) readRefHash(name string) (object.Hash, error) {
	data, err := os.ReadFile(s.refPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %w", object.ErrIO, err)
	}
	h, err := object.ParseHash(strings.TrimSpace(string(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", object.ErrCorrupt, err)
	}
	return h, nil
}

// UpdateRef writes a hash to the named ref file, creating parent
// directories as needed. When HEAD follows the ref, the HEAD reflog records
// the move too.
func (s *FileRefStore) UpdateRef(name string, h object.Hash, reason string) error {
	if err := validateRefName(name); err != nil {
		return fmt.Errorf("update ref: %w", err)
	}
	if _, err := object.ParseHash(string(h)); err != nil {
		return fmt.Errorf("update ref %q: %w", name, err)
	}

	oldHash := s.refHashForLog(name)
	if err := writeFileAtomic(s.refPath(name), []byte(string(h)+"\n"), 0o644); err != nil {
		return fmt.Errorf("update ref %q: %w: %w", name, object.ErrIO, err)
	}

	if err := s.appendReflog(name, oldHash, h, reason); err != nil {
		return fmt.Errorf("update ref %q: %w", name, err)
	}
	if head, err := s.ReadHead(); err == nil && head.Ref == name {
		if err := s.appendReflog("HEAD", oldHash, h, reason); err != nil {
			return fmt.Errorf("update ref %q: %w", name, err)
		}
	}
	return nil
}

// DeleteRef removes a ref file and its reflog.
func (s *FileRefStore) DeleteRef(name string) error {
	if err := validateRefName(name); err != nil {
		return fmt.Errorf("delete ref: %w", err)
	}
	if err := os.Remove(s.refPath(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete ref %q: %w", name, object.ErrNotFound)
		}
		return fmt.Errorf("delete ref %q: %w: %w", name, object.ErrIO, err)
	}
	if err := os.Remove(s.logPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete ref %q: reflog: %w", name, err)
	}
	return nil
}

// ListRefs lists references under .hpn/refs. Names are returned relative to
// the refs root, e.g. "heads/master".
func (s *FileRefStore) ListRefs(prefix string) (map[string]object.Hash, error) {
	root := filepath.Join(s.dir, "refs")
	dir := root
	if strings.TrimSpace(prefix) != "" {
		dir = filepath.Join(root, filepath.FromSlash(prefix))
	}

	refs := make(map[string]object.Hash)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		h, err := s.readRefHash("refs/" + name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		refs[name] = h
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return refs, nil
}

// Lock takes an exclusive flock on .hpn/refs.lock, retrying until
// refLockWaitLimit elapses.
func (s *FileRefStore) Lock() (Unlocker, error) {
	fl := flock.New(filepath.Join(s.dir, refLockFileName))
	ctx, cancel := context.WithTimeout(context.Background(), refLockWaitLimit)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, refLockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock refs: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock refs: timeout waiting for %s", fl.Path())
	}
	return fl, nil
}

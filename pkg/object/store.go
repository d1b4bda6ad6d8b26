package object

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
type Store struct {
	root   string
	level  int
	logger *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCompressionLevel sets the zlib level used for new objects.
func WithCompressionLevel(level int) StoreOption {
	return func(s *Store) {
		s.level = level
	}
}

// WithLogger sets the logger used for write diagnostics.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store rooted at the given objects directory. Fan-out
// subdirectories are created lazily on first write.
func NewStore(root string, opts ...StoreOption) *Store {
	s := &Store{
		root:   root,
		level:  zlib.DefaultCompression,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the objects directory.
func (s *Store) Root() string {
	return s.root
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if _, err := ParseHash(string(h)); err != nil {
		return false
	}
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// Put stores an object and returns its content hash. Objects are written
// once: if the hash already exists nothing is written. New objects land via
// a temp file that is linked into place, so an existing file is never
// replaced. Where hard links are unsupported the temp file is renamed into
// place only after checking dest is absent; two writers racing through
// that window can still replace each other's file with identical bytes.
func (s *Store) Put(objType ObjectType, data []byte) (Hash, error) {
	h, envelope := Encode(objType, data)

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	compressed, err := Compress(envelope, s.level)
	if err != nil {
		return "", fmt.Errorf("object write %s: %w", h, err)
	}

	dir := filepath.Join(s.root, string(h[:2]))
	// MkdirAll tolerates a concurrent creator of the same directory.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("object write mkdir: %w: %w", ErrIO, err)
	}

	if err := writeOnce(dir, s.objectPath(h), compressed); err != nil {
		return "", fmt.Errorf("object write %s: %w: %w", h, ErrIO, err)
	}

	s.logger.Debug("wrote object",
		zap.String("hash", string(h)),
		zap.String("type", string(objType)),
		zap.Int("size", len(data)),
	)
	return h, nil
}

func writeOnce(dir, dest string, data []byte) (retErr error) {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// The temp name is always discarded; after a successful link the
		// object lives on under dest.
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			retErr = multierr.Append(retErr, err)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err := tmp.Chmod(0o444); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := linkObject(tmpName, dest); err != nil {
		if errors.Is(err, fs.ErrExist) {
			// Another writer got there first with identical content.
			return nil
		}
		// Filesystems without hard links fall back to rename, which would
		// replace dest, so an existing object wins here too.
		if _, statErr := os.Lstat(dest); statErr == nil {
			return nil
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return multierr.Append(err, statErr)
		}
		return os.Rename(tmpName, dest)
	}
	return nil
}

// linkObject publishes a finished temp file under its object path.
var linkObject = os.Link

// Get retrieves an object by hash, returning its type and payload. It
// returns ErrNotFound when the object is absent and ErrCorrupt when the
// stored bytes do not decompress or decode.
func (s *Store) Get(h Hash) (ObjectType, []byte, error) {
	if _, err := ParseHash(string(h)); err != nil {
		return "", nil, fmt.Errorf("object read %q: %w", h, ErrNotFound)
	}
	raw, err := os.ReadFile(s.objectPath(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("object read %s: %w", h, ErrNotFound)
		}
		return "", nil, fmt.Errorf("object read %s: %w: %w", h, ErrIO, err)
	}

	envelope, err := Decompress(raw)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}
	objType, payload, err := Decode(envelope)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}
	return objType, payload, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

func (s *Store) readTyped(h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := s.Get(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, fmt.Errorf("object %s: %w: got %q, want %q", h, ErrTypeMismatch, objType, want)
	}
	return data, nil
}

// WriteBlob stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Put(TypeBlob, b.Data)
}

// ReadBlob reads a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	data, err := s.readTyped(h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return &Blob{Data: data}, nil
}

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	data, err := MarshalTree(tr)
	if err != nil {
		return "", err
	}
	return s.Put(TypeTree, data)
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	data, err := s.readTyped(h, TypeTree)
	if err != nil {
		return nil, err
	}
	tr, err := UnmarshalTree(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", h, err)
	}
	return tr, nil
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Put(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	data, err := s.readTyped(h, TypeCommit)
	if err != nil {
		return nil, err
	}
	c, err := UnmarshalCommit(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", h, err)
	}
	return c, nil
}

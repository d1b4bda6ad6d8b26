package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/hpn/pkg/object"
)

const (
	symbolicRefPrefix = "ref: "
	branchRefPrefix   = "refs/heads/"
)

// Head is the repository's current position: either symbolic (Ref names a
// branch ref such as "refs/heads/master") or detached (Hash is a commit).
type Head struct {
	Ref  string
	Hash object.Hash
}

// SymbolicHead returns a Head that follows the given ref.
func SymbolicHead(ref string) Head {
	return Head{Ref: ref}
}

// DetachedHead returns a Head pinned to a commit.
func DetachedHead(h object.Hash) Head {
	return Head{Hash: h}
}

// IsDetached reports whether HEAD holds a commit hash directly.
func (h Head) IsDetached() bool {
	return h.Ref == ""
}

// Branch returns the branch name for a symbolic HEAD, or "" when detached.
func (h Head) Branch() string {
	return strings.TrimPrefix(h.Ref, branchRefPrefix)
}

// Marshal returns the HEAD file content.
func (h Head) Marshal() []byte {
	if h.IsDetached() {
		return []byte(string(h.Hash) + "\n")
	}
	return []byte(symbolicRefPrefix + h.Ref + "\n")
}

func (h Head) String() string {
	if h.IsDetached() {
		return string(h.Hash)
	}
	return h.Ref
}

// ParseHead parses HEAD file content.
func ParseHead(data []byte) (Head, error) {
	content := strings.TrimSpace(string(data))
	if ref, ok := strings.CutPrefix(content, symbolicRefPrefix); ok {
		ref = strings.TrimSpace(ref)
		if err := validateRefName(ref); err != nil {
			return Head{}, fmt.Errorf("%w: HEAD: %v", object.ErrCorrupt, err)
		}
		return SymbolicHead(ref), nil
	}
	h, err := object.ParseHash(content)
	if err != nil {
		return Head{}, fmt.Errorf("%w: HEAD: %v", object.ErrCorrupt, err)
	}
	return DetachedHead(h), nil
}

// BranchRef returns the ref path for a branch name.
func BranchRef(name string) string {
	return branchRefPrefix + name
}

// ValidateBranchName rejects names that cannot be stored as a ref file or
// would not survive a HEAD round trip.
func ValidateBranchName(name string) error {
	if name == "" {
		return fmt.Errorf("branch name is empty")
	}
	if name == "HEAD" {
		return fmt.Errorf("branch name %q is reserved", name)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("branch name %q must not start with '-'", name)
	}
	return validateRefName(BranchRef(name))
}

func validateRefName(ref string) error {
	if !strings.HasPrefix(ref, "refs/") {
		return fmt.Errorf("ref %q must live under refs/", ref)
	}
	if strings.HasSuffix(ref, "/") || strings.HasSuffix(ref, ".lock") || strings.HasSuffix(ref, ".") {
		return fmt.Errorf("invalid ref %q", ref)
	}
	if strings.Contains(ref, "..") || strings.Contains(ref, "//") || strings.Contains(ref, "@{") {
		return fmt.Errorf("invalid ref %q", ref)
	}
	for _, c := range ref {
		if c < 0x20 || c == 0x7f || strings.ContainsRune(" ~^:?*[]\\", c) {
			return fmt.Errorf("invalid character %q in ref %q", c, ref)
		}
	}
	for _, part := range strings.Split(ref, "/") {
		if strings.HasPrefix(part, ".") {
			return fmt.Errorf("invalid ref %q: component %q starts with '.'", ref, part)
		}
	}
	return nil
}

// Resolve follows h to a commit hash. A symbolic HEAD whose ref does not
// exist yet (an unborn branch) resolves to "" with no error.
func (r *Repo) Resolve(h Head) (object.Hash, error) {
	if h.IsDetached() {
		return h.Hash, nil
	}
	target, err := r.Refs.ReadRef(h.Ref)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("resolve %s: %w", h.Ref, err)
	}
	return target, nil
}

// Head reads the current HEAD.
func (r *Repo) Head() (Head, error) {
	return r.Refs.ReadHead()
}

// ResolveHead reads HEAD and resolves it to a commit hash, returning "" when
// no commit exists yet.
func (r *Repo) ResolveHead() (object.Hash, error) {
	head, err := r.Refs.ReadHead()
	if err != nil {
		return "", err
	}
	return r.Resolve(head)
}

// ResolveRevision turns a user-supplied revision into an object hash. It
// accepts "HEAD", a branch name, a full ref such as refs/heads/dev, or a
// full 40-character object id. "<rev>:<path>" names the blob or tree at
// path inside the commit or tree rev resolves to.
func (r *Repo) ResolveRevision(rev string) (object.Hash, error) {
	rev = strings.TrimSpace(rev)
	if base, relPath, ok := strings.Cut(rev, ":"); ok {
		return r.resolveRevisionPath(base, relPath)
	}
	if rev == "HEAD" {
		h, err := r.ResolveHead()
		if err != nil {
			return "", err
		}
		if h == "" {
			return "", ErrEmptyHistory
		}
		return h, nil
	}
	ref := rev
	if !strings.HasPrefix(ref, "refs/") {
		ref = BranchRef(rev)
	}
	if validateRefName(ref) == nil {
		h, err := r.Refs.ReadRef(ref)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, object.ErrNotFound) {
			return "", err
		}
	}
	h, err := object.ParseHash(rev)
	if err != nil {
		return "", fmt.Errorf("%w: unknown revision %q", ErrInvalidTarget, rev)
	}
	return h, nil
}

func (r *Repo) resolveRevisionPath(base, relPath string) (object.Hash, error) {
	h, err := r.ResolveRevision(base)
	if err != nil {
		return "", err
	}
	objType, data, err := r.Store.Get(h)
	if err != nil {
		return "", err
	}
	treeHash := h
	switch objType {
	case object.TypeCommit:
		c, err := object.UnmarshalCommit(data)
		if err != nil {
			return "", fmt.Errorf("object %s: %w", h, err)
		}
		treeHash = c.TreeHash
	case object.TypeTree:
	default:
		return "", fmt.Errorf("%w: %s is a %s, not a tree-ish", ErrInvalidTarget, base, objType)
	}

	entry, found, err := r.TreeEntryAtPath(treeHash, relPath)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: path %q does not exist in %s", ErrInvalidTarget, relPath, base)
	}
	return entry.Hash, nil
}

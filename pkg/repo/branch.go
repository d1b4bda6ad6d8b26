package repo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/odvcencio/hpn/pkg/object"
	"go.uber.org/zap"
)

// CreateBranch creates refs/heads/<name> at the commit HEAD resolves to and
// points HEAD at the new branch. The work tree is left alone, since it
// already matches that commit. Fails with ErrEmptyHistory before the first
// commit and ErrBranchExists if the ref is present.
func (r *Repo) CreateBranch(name string) (Head, error) {
	var newHead Head
	err := r.withRefLock(func() error {
		if err := ValidateBranchName(name); err != nil {
			return err
		}
		head, err := r.Refs.ReadHead()
		if err != nil {
			return fmt.Errorf("read HEAD: %w", err)
		}
		target, err := r.Resolve(head)
		if err != nil {
			return err
		}
		if target == "" {
			return ErrEmptyHistory
		}

		ref := BranchRef(name)
		if _, err := r.Refs.ReadRef(ref); err == nil {
			return fmt.Errorf("%w: %q", ErrBranchExists, name)
		} else if !errors.Is(err, object.ErrNotFound) {
			return err
		}

		if err := r.Refs.UpdateRef(ref, target, "branch: created from "+head.String()); err != nil {
			return err
		}
		newHead = SymbolicHead(ref)
		if err := r.Refs.WriteHead(newHead, fmt.Sprintf("checkout: moving from %s to %s", head.String(), name)); err != nil {
			return err
		}
		r.Logger.Debug("created branch", zap.String("branch", name), zap.String("commit", string(target)))
		return nil
	})
	if err != nil {
		return Head{}, fmt.Errorf("create branch %q: %w", name, err)
	}
	return newHead, nil
}

// SwitchBranch restores the work tree to the commit at refs/heads/<name>
// and points HEAD at the branch. Files present in the target tree are
// overwritten unconditionally.
func (r *Repo) SwitchBranch(name string) (Head, error) {
	var newHead Head
	err := r.withRefLock(func() error {
		if err := ValidateBranchName(name); err != nil {
			return err
		}
		ref := BranchRef(name)
		target, err := r.Refs.ReadRef(ref)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) {
				return fmt.Errorf("%w: %q", ErrBranchNotFound, name)
			}
			return err
		}
		old := r.headForLog()

		commit, err := r.Store.ReadCommit(target)
		if err != nil {
			return fmt.Errorf("read commit %s: %w", target, err)
		}
		if err := r.Restore(commit.TreeHash, r.RootDir); err != nil {
			return err
		}

		newHead = SymbolicHead(ref)
		return r.Refs.WriteHead(newHead, fmt.Sprintf("checkout: moving from %s to %s", old.String(), name))
	})
	if err != nil {
		return Head{}, fmt.Errorf("switch branch %q: %w", name, err)
	}
	return newHead, nil
}

// SwitchDetached restores the work tree to the given commit and writes the
// commit hash directly into HEAD. Fails with ErrInvalidTarget when id does
// not name a commit object.
func (r *Repo) SwitchDetached(id object.Hash) (Head, error) {
	var newHead Head
	err := r.withRefLock(func() error {
		if _, err := object.ParseHash(string(id)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
		}
		commit, err := r.Store.ReadCommit(id)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) || errors.Is(err, object.ErrTypeMismatch) {
				return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
			}
			return err
		}
		old := r.headForLog()

		if err := r.Restore(commit.TreeHash, r.RootDir); err != nil {
			return err
		}
		newHead = DetachedHead(id)
		return r.Refs.WriteHead(newHead, fmt.Sprintf("checkout: moving from %s to %s", old.String(), id))
	})
	if err != nil {
		return Head{}, fmt.Errorf("switch to %s: %w", id, err)
	}
	return newHead, nil
}

// DeleteBranch removes refs/heads/<name>. The current branch cannot be
// deleted.
func (r *Repo) DeleteBranch(name string) error {
	return r.withRefLock(func() error {
		current, err := r.CurrentBranch()
		if err != nil {
			return fmt.Errorf("delete branch: %w", err)
		}
		if current == name {
			return fmt.Errorf("delete branch: cannot delete current branch %q", name)
		}
		if err := r.Refs.DeleteRef(BranchRef(name)); err != nil {
			if errors.Is(err, object.ErrNotFound) {
				return fmt.Errorf("delete branch: %w: %q", ErrBranchNotFound, name)
			}
			return fmt.Errorf("delete branch %q: %w", name, err)
		}
		return nil
	})
}

// ListBranches returns the branch names sorted alphabetically.
func (r *Repo) ListBranches() ([]string, error) {
	refs, err := r.Refs.ListRefs("heads")
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name[len("heads/"):])
	}
	sort.Strings(names)
	return names, nil
}

// CurrentBranch returns the branch HEAD follows, or "" when detached.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Refs.ReadHead()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	if head.IsDetached() {
		return "", nil
	}
	return head.Branch(), nil
}

// headForLog reads HEAD for a reflog "moving from" message. A failed read
// does not block the switch, since the switch rewrites HEAD anyway.
func (r *Repo) headForLog() Head {
	head, err := r.Refs.ReadHead()
	if err != nil {
		r.Logger.Debug("reflog: unreadable HEAD before switch", zap.Error(err))
	}
	return head
}

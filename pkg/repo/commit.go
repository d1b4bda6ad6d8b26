package repo

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/odvcencio/hpn/pkg/object"
	"go.uber.org/zap"
)

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

// Commit snapshots the work tree and records it on top of HEAD.
//
//  1. BuildTree over the work tree root
//  2. Resolve HEAD to a concrete parent commit hash (if any)
//  3. Create CommitObj with tree, parent, identity, current timestamp, message
//  4. Write commit to store
//  5. Advance the ref HEAD follows, or HEAD itself when detached
func (r *Repo) Commit(message string) (object.Hash, error) {
	return r.CommitWithSigner(message, nil)
}

// CommitWithSigner creates a new commit and signs it when signer is provided.
func (r *Repo) CommitWithSigner(message string, signer CommitSigner) (object.Hash, error) {
	var commitHash object.Hash
	err := r.withRefLock(func() error {
		var err error
		commitHash, err = r.commitLocked(message, signer)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return commitHash, nil
}

func (r *Repo) commitLocked(message string, signer CommitSigner) (object.Hash, error) {
	treeHash, err := r.WriteTree()
	if err != nil {
		return "", err
	}

	head, err := r.Refs.ReadHead()
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	parent, err := r.Resolve(head)
	if err != nil {
		return "", err
	}

	ts := r.now().Unix()
	identity := r.Config.Identity()
	commitObj := &object.CommitObj{
		TreeHash:          treeHash,
		Parent:            parent,
		Author:            identity,
		AuthorTime:        ts,
		AuthorTimezone:    r.Config.Core.Timezone,
		Committer:         identity,
		CommitterTime:     ts,
		CommitterTimezone: r.Config.Core.Timezone,
		Message:           message,
	}
	if signer != nil {
		signature, err := signer(object.CommitSigningPayload(commitObj))
		if err != nil {
			return "", fmt.Errorf("sign commit: %w", err)
		}
		commitObj.Signature = signature
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", fmt.Errorf("write commit: %w", err)
	}

	reason := "commit: " + firstLine(message)
	if parent == "" {
		reason = "commit (initial): " + firstLine(message)
	}
	if head.IsDetached() {
		if err := r.Refs.WriteHead(DetachedHead(commitHash), reason); err != nil {
			return "", fmt.Errorf("update detached HEAD: %w", err)
		}
	} else if err := r.Refs.UpdateRef(head.Ref, commitHash, reason); err != nil {
		return "", fmt.Errorf("update ref %q: %w", head.Ref, err)
	}

	r.Logger.Debug("committed",
		zap.String("commit", string(commitHash)),
		zap.String("tree", string(treeHash)),
		zap.String("parent", string(parent)),
		zap.String("head", head.String()),
	)
	return commitHash, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// LogEntry is one commit yielded by a history walk.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// LogIter walks a commit chain from newest to oldest by following parent
// links. It is single-use: once Next returns io.EOF or an error, it keeps
// returning that.
type LogIter struct {
	store *object.Store
	next  object.Hash
	err   error
}

// LogFrom returns an iterator starting at the given commit. An empty start
// yields an empty history.
func (r *Repo) LogFrom(start object.Hash) *LogIter {
	it := &LogIter{store: r.Store, next: start}
	if start == "" {
		it.err = io.EOF
	}
	return it
}

// History returns an iterator over the commits reachable from HEAD.
func (r *Repo) History() (*LogIter, error) {
	start, err := r.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	return r.LogFrom(start), nil
}

// Next returns the next commit, or io.EOF after the root commit.
func (it *LogIter) Next() (LogEntry, error) {
	if it.err != nil {
		return LogEntry{}, it.err
	}
	h := it.next
	c, err := it.store.ReadCommit(h)
	if err != nil {
		it.err = fmt.Errorf("log: read commit %s: %w", h, err)
		return LogEntry{}, it.err
	}
	if c.Parent == "" {
		it.err = io.EOF
	} else {
		it.next = c.Parent
	}
	return LogEntry{Hash: h, Commit: c}, nil
}

// Log collects up to limit commits reachable from HEAD, newest first. A
// limit <= 0 means no limit. An empty repository yields no entries.
func (r *Repo) Log(limit int) ([]LogEntry, error) {
	it, err := r.History()
	if err != nil {
		return nil, err
	}
	var entries []LogEntry
	for limit <= 0 || len(entries) < limit {
		e, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

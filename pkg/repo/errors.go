package repo

import "errors"

var (
	// ErrEmptyHistory is returned when an operation needs a commit but HEAD
	// does not resolve to one yet.
	ErrEmptyHistory = errors.New("no commits yet")
	// ErrInvalidTarget is returned when a checkout target is neither a branch
	// nor a readable commit.
	ErrInvalidTarget = errors.New("invalid checkout target")
	// ErrBranchExists is returned when creating a branch whose ref exists.
	ErrBranchExists = errors.New("branch already exists")
	// ErrBranchNotFound is returned when switching to or deleting a branch
	// whose ref file is missing.
	ErrBranchNotFound = errors.New("branch not found")
	// ErrNotRepository is returned by Open when no metadata directory is found.
	ErrNotRepository = errors.New("not an hpn repository")
)

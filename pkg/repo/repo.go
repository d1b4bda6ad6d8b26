package repo

import (
	"time"

	"github.com/odvcencio/hpn/pkg/object"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// MetaDirName is the repository metadata directory inside the work tree.
	MetaDirName = ".hpn"
	// DefaultBranch is the branch HEAD points at after Init.
	DefaultBranch = "master"
)

// Repo represents an opened hpn repository.
type Repo struct {
	RootDir string        // working directory root
	MetaDir string        // .hpn/ directory
	Store   *object.Store // content-addressed object store
	Refs    RefStore      // HEAD and branch refs
	Config  *Config
	Ignore  Matcher // exclusion predicate used by BuildTree
	Logger  *zap.Logger

	now func() time.Time
}

type options struct {
	logger        *zap.Logger
	refs          RefStore
	ignore        Matcher
	now           func() time.Time
	initialBranch string
}

func collectOptions(opts []Option) *options {
	o := &options{initialBranch: DefaultBranch}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures Init and Open.
type Option func(*options)

// WithLogger sets the logger for repository and store diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRefStore replaces the on-disk HEAD/ref storage, e.g. with a
// MemRefStore in tests.
func WithRefStore(refs RefStore) Option {
	return func(o *options) {
		o.refs = refs
	}
}

// WithIgnore replaces the exclusion predicate derived from config and
// .hpnignore.
func WithIgnore(m Matcher) Option {
	return func(o *options) {
		o.ignore = m
	}
}

// WithInitialBranch sets the unborn branch HEAD points at after Init.
// Open ignores it.
func WithInitialBranch(name string) Option {
	return func(o *options) {
		o.initialBranch = name
	}
}

// WithClock sets the time source used for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newRepo(root, metaDir string, cfg *Config, o *options) (*Repo, error) {
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := o.now
	if now == nil {
		now = time.Now
	}
	refs := o.refs
	if refs == nil {
		refs = NewFileRefStore(metaDir, WithRefLogger(logger.Named("refs")), WithRefClock(now))
	}
	ignore := o.ignore
	if ignore == nil {
		patterns, err := LoadIgnoreFile(root)
		if err != nil {
			return nil, err
		}
		patterns = append(append([]string{MetaDirName, ".git"}, cfg.Core.Ignore...), patterns...)
		ignore = NewIgnoreMatcher(patterns...)
	}
	return &Repo{
		RootDir: root,
		MetaDir: metaDir,
		Store: object.NewStore(
			objectsDir(metaDir),
			object.WithCompressionLevel(cfg.Core.Compression),
			object.WithLogger(logger.Named("store")),
		),
		Refs:    refs,
		Config:  cfg,
		Ignore:  ignore,
		Logger:  logger,
		now:     now,
	}, nil
}

// withRefLock runs fn while holding the ref store's exclusive lock. The
// lock is released on every path, and a failed release is reported.
func (r *Repo) withRefLock(fn func() error) (retErr error) {
	unlocker, err := r.Refs.Lock()
	if err != nil {
		return err
	}
	defer func() {
		retErr = multierr.Append(retErr, unlocker.Unlock())
	}()
	return fn()
}

package repo

import (
	"time"

	"github.com/odvcencio/hpn/pkg/object"
	"go.uber.org/zap"
)

// RefStore persists HEAD and named refs. Implementations do not lock
// internally; mutating repository operations hold Lock for their duration.
type RefStore interface {
	// ReadHead returns the current HEAD.
	ReadHead() (Head, error)
	// WriteHead replaces HEAD.
	WriteHead(h Head, reason string) error
	// ReadRef returns the commit a ref points at, or an error wrapping
	// object.ErrNotFound when the ref does not exist.
	ReadRef(name string) (object.Hash, error)
	// UpdateRef creates or moves a ref.
	UpdateRef(name string, h object.Hash, reason string) error
	// DeleteRef removes a ref, wrapping object.ErrNotFound when absent.
	DeleteRef(name string) error
	// ListRefs returns refs under refs/<prefix>, keyed relative to refs/.
	ListRefs(prefix string) (map[string]object.Hash, error)
	// Reflog returns the recorded updates for a ref ("HEAD" included),
	// newest first.
	Reflog(name string) ([]ReflogEntry, error)
	// Lock acquires the exclusive advisory lock guarding ref mutation.
	Lock() (Unlocker, error)
}

// Unlocker releases a lock obtained from RefStore.Lock.
type Unlocker interface {
	Unlock() error
}

// ReflogEntry records one ref movement.
type ReflogEntry struct {
	Ref       string
	OldHash   object.Hash
	NewHash   object.Hash
	Timestamp int64
	Reason    string
}

type refStoreOptions struct {
	logger *zap.Logger
	now    func() time.Time
}

// RefStoreOption configures NewFileRefStore and NewMemRefStore.
type RefStoreOption func(*refStoreOptions)

// WithRefLogger sets the logger for diagnostics the store cannot return,
// such as an unreadable old value while recording a reflog entry.
func WithRefLogger(logger *zap.Logger) RefStoreOption {
	return func(o *refStoreOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRefClock sets the time source for reflog timestamps.
func WithRefClock(now func() time.Time) RefStoreOption {
	return func(o *refStoreOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func newRefStoreOptions(opts []RefStoreOption) refStoreOptions {
	o := refStoreOptions{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

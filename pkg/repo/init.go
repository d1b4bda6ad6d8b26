package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

func objectsDir(metaDir string) string {
	return filepath.Join(metaDir, "objects")
}

// canonicalRoot returns path as an absolute path with every symlink
// resolved, so the work tree root is never itself a link.
func canonicalRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", abs, err)
	}
	return resolved, nil
}

// Init creates a new repository at path. It creates the .hpn/ directory
// structure (objects/, refs/heads/, logs/), a default config.toml, and
// points HEAD at the unborn initial branch (master unless
// WithInitialBranch says otherwise). Returns an error if a .hpn/
// directory already exists.
func Init(path string, opts ...Option) (*Repo, error) {
	o := collectOptions(opts)
	if err := ValidateBranchName(o.initialBranch); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("init: mkdir %s: %w", path, err)
	}
	abs, err := canonicalRoot(path)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	metaDir := filepath.Join(abs, MetaDirName)

	if _, err := os.Stat(metaDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", metaDir)
	}

	dirs := []string{
		objectsDir(metaDir),
		filepath.Join(metaDir, "refs", "heads"),
		filepath.Join(metaDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	cfg := DefaultConfig()
	if err := WriteConfig(metaDir, cfg); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	r, err := newRepo(abs, metaDir, cfg, o)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	head := SymbolicHead(BranchRef(o.initialBranch))
	if err := r.Refs.WriteHead(head, "init"); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	r.Logger.Debug("initialized repository", zap.String("path", metaDir))
	return r, nil
}

// Open searches upward from path for a .hpn/ directory and opens the
// repository, loading its config and ignore rules.
func Open(path string, opts ...Option) (*Repo, error) {
	abs, err := canonicalRoot(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	cur := abs
	for {
		metaDir := filepath.Join(cur, MetaDirName)
		info, err := os.Stat(metaDir)
		if err == nil && info.IsDir() {
			cfg, err := ReadConfig(metaDir)
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			r, err := newRepo(cur, metaDir, cfg, collectOptions(opts))
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			return r, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open: stat %s: %w", metaDir, err)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: %w (or any parent up to /)", ErrNotRepository)
		}
		cur = parent
	}
}

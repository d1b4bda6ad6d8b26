package repo

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/odvcencio/hpn/pkg/object"
	"go.uber.org/multierr"
)

var zeroHash = object.Hash(strings.Repeat("0", 2*object.HashSize))

func (s *FileRefStore) logPath(ref string) string {
	return filepath.Join(s.dir, "logs", filepath.FromSlash(ref))
}

func formatReflogLine(oldHash, newHash object.Hash, ts int64, reason string) string {
	if oldHash == "" {
		oldHash = zeroHash
	}
	if newHash == "" {
		newHash = zeroHash
	}
	reason = strings.Join(strings.Fields(reason), " ")
	if reason == "" {
		reason = "update"
	}
	return fmt.Sprintf("%s %s %d %s\n", oldHash, newHash, ts, reason)
}

func (s *FileRefStore) appendReflog(ref string, oldHash, newHash object.Hash, reason string) (retErr error) {
	logPath := s.logPath(ref)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("reflog mkdir: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog open: %w", err)
	}
	defer func() {
		retErr = multierr.Append(retErr, f.Close())
	}()

	if _, err := f.WriteString(formatReflogLine(oldHash, newHash, s.now().Unix(), reason)); err != nil {
		return fmt.Errorf("reflog write: %w", err)
	}
	return nil
}

// Reflog reads .hpn/logs/<ref>, newest first. A ref with no log returns an
// empty slice.
func (s *FileRefStore) Reflog(ref string) ([]ReflogEntry, error) {
	if ref != "HEAD" {
		if err := validateRefName(ref); err != nil {
			return nil, fmt.Errorf("read reflog: %w", err)
		}
	}
	f, err := os.Open(s.logPath(ref))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reflog: %w", err)
	}
	defer f.Close()

	var entries []ReflogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		e, ok := parseReflogLine(ref, scanner.Text())
		if ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reflog: %w", err)
	}

	reverseReflog(entries)
	return entries, nil
}

func parseReflogLine(ref, line string) (ReflogEntry, bool) {
	line = strings.TrimSpace(line)
	parts := strings.SplitN(line, " ", 4)
	if len(parts) < 4 {
		return ReflogEntry{}, false
	}
	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return ReflogEntry{}, false
	}
	e := ReflogEntry{
		Ref:       ref,
		OldHash:   object.Hash(parts[0]),
		NewHash:   object.Hash(parts[1]),
		Timestamp: ts,
		Reason:    parts[3],
	}
	if e.OldHash == zeroHash {
		e.OldHash = ""
	}
	if e.NewHash == zeroHash {
		e.NewHash = ""
	}
	return e, true
}

func reverseReflog(entries []ReflogEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}

// ReadReflog returns up to limit reflog entries for ref, newest first. An
// empty ref or "HEAD" reads the HEAD log; a bare branch name is expanded to
// refs/heads/<name>.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "" || ref == "HEAD":
		ref = "HEAD"
	case !strings.HasPrefix(ref, "refs/"):
		ref = BranchRef(ref)
	}
	entries, err := r.Refs.Reflog(ref)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

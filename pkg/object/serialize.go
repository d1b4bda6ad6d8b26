package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes a TreeObj. Entries are sorted by Name for
// deterministic output and encoded back to back as
//
//	<mode> <name>\0<20 raw digest bytes>
func MarshalTree(tr *TreeObj) ([]byte, error) {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	for i, e := range sorted {
		if err := validateEntryName(e.Name); err != nil {
			return nil, fmt.Errorf("marshal tree: %w", err)
		}
		if i > 0 && sorted[i-1].Name == e.Name {
			return nil, fmt.Errorf("marshal tree: duplicate entry %q", e.Name)
		}
		if e.Mode != TreeModeFile && e.Mode != TreeModeDir {
			return nil, fmt.Errorf("marshal tree: entry %q: unknown mode %q", e.Name, e.Mode)
		}
		raw, err := e.Hash.Raw()
		if err != nil {
			return nil, fmt.Errorf("marshal tree: entry %q: %w", e.Name, err)
		}
		buf.WriteString(e.Mode)
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// ValidateEntryName reports whether name can appear in a tree: it must be
// a single non-empty path component.
func ValidateEntryName(name string) error {
	return validateEntryName(name)
}

func validateEntryName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid entry name %q", name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("invalid entry name %q", name)
	}
	return nil
}

// UnmarshalTree parses a TreeObj from its binary form. Each record boundary
// is found by skipping exactly HashSize bytes after the name terminator,
// since digest bytes may themselves contain spaces or NULs.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	for pos := 0; pos < len(data); {
		sp := bytes.IndexByte(data[pos:], ' ')
		if sp < 0 {
			return nil, fmt.Errorf("%w: tree entry at offset %d: missing mode separator", ErrCorrupt, pos)
		}
		mode := string(data[pos : pos+sp])
		if mode != TreeModeFile && mode != TreeModeDir {
			return nil, fmt.Errorf("%w: tree entry at offset %d: unknown mode %q", ErrCorrupt, pos, mode)
		}
		pos += sp + 1

		nul := bytes.IndexByte(data[pos:], 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: tree entry at offset %d: missing name terminator", ErrCorrupt, pos)
		}
		name := string(data[pos : pos+nul])
		if err := validateEntryName(name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		pos += nul + 1

		if len(data)-pos < HashSize {
			return nil, fmt.Errorf("%w: tree entry %q: truncated hash", ErrCorrupt, name)
		}
		h, err := HashFromRaw(data[pos : pos+HashSize])
		if err != nil {
			return nil, fmt.Errorf("%w: tree entry %q: %v", ErrCorrupt, name, err)
		}
		pos += HashSize

		tr.Entries = append(tr.Entries, TreeEntry{Name: name, Mode: mode, Hash: h})
	}
	return tr, nil
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H       (optional)
//	author A T Z
//	committer C T Z
//	signature S    (optional)
//
//	message
//
// The message is followed by a single trailing newline.
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeHash)
	if c.Parent != "" {
		fmt.Fprintf(&buf, "parent %s\n", c.Parent)
	}
	fmt.Fprintf(&buf, "author %s %d %s\n", c.Author, c.AuthorTime, c.AuthorTimezone)
	fmt.Fprintf(&buf, "committer %s %d %s\n", c.Committer, c.CommitterTime, c.CommitterTimezone)
	if strings.TrimSpace(c.Signature) != "" {
		fmt.Fprintf(&buf, "signature %s\n", c.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("%w: commit: missing header/message separator", ErrCorrupt)
	}
	header := string(data[:idx])
	message := strings.TrimSuffix(string(data[idx+2:]), "\n")

	c := &CommitObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: commit: malformed header line %q", ErrCorrupt, line)
		}
		var err error
		switch key {
		case "tree":
			c.TreeHash, err = ParseHash(val)
		case "parent":
			if c.Parent != "" {
				return nil, fmt.Errorf("%w: commit: more than one parent", ErrCorrupt)
			}
			c.Parent, err = ParseHash(val)
		case "author":
			c.Author, c.AuthorTime, c.AuthorTimezone, err = parseIdentLine(val)
		case "committer":
			c.Committer, c.CommitterTime, c.CommitterTimezone, err = parseIdentLine(val)
		case "signature":
			c.Signature = val
		default:
			return nil, fmt.Errorf("%w: commit: unknown header key %q", ErrCorrupt, key)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: commit: %s: %v", ErrCorrupt, key, err)
		}
	}
	if c.TreeHash == "" {
		return nil, fmt.Errorf("%w: commit: missing tree", ErrCorrupt)
	}
	return c, nil
}

// parseIdentLine splits "<identity> <unix-seconds> <timezone>". The
// identity itself may contain spaces, so the two trailing fields are taken
// from the right.
func parseIdentLine(val string) (string, int64, string, error) {
	tzIdx := strings.LastIndexByte(val, ' ')
	if tzIdx < 0 {
		return "", 0, "", fmt.Errorf("malformed identity %q", val)
	}
	tz := val[tzIdx+1:]
	rest := val[:tzIdx]
	tsIdx := strings.LastIndexByte(rest, ' ')
	if tsIdx < 0 {
		return "", 0, "", fmt.Errorf("malformed identity %q", val)
	}
	ts, err := strconv.ParseInt(rest[tsIdx+1:], 10, 64)
	if err != nil {
		return "", 0, "", fmt.Errorf("bad timestamp %q: %w", rest[tsIdx+1:], err)
	}
	return rest[:tsIdx], ts, tz, nil
}

// CommitSigningPayload returns the canonical bytes that are signed for a
// commit. The payload excludes the signature field itself.
func CommitSigningPayload(c *CommitObj) []byte {
	if c == nil {
		return nil
	}
	unsigned := *c
	unsigned.Signature = ""
	return MarshalCommit(&unsigned)
}

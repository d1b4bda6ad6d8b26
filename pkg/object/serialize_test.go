package object

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarshalTreeSortsEntries(t *testing.T) {
	a := HashObject(TypeBlob, []byte("a"))
	b := HashObject(TypeBlob, []byte("b"))
	sub := HashObject(TypeTree, nil)

	tr1 := &TreeObj{Entries: []TreeEntry{
		{Name: "b.txt", Mode: TreeModeFile, Hash: b},
		{Name: "a.txt", Mode: TreeModeFile, Hash: a},
		{Name: "dir", Mode: TreeModeDir, Hash: sub},
	}}
	tr2 := &TreeObj{Entries: []TreeEntry{
		{Name: "dir", Mode: TreeModeDir, Hash: sub},
		{Name: "a.txt", Mode: TreeModeFile, Hash: a},
		{Name: "b.txt", Mode: TreeModeFile, Hash: b},
	}}
	d1, err := MarshalTree(tr1)
	if err != nil {
		t.Fatalf("MarshalTree: %v", err)
	}
	d2, err := MarshalTree(tr2)
	if err != nil {
		t.Fatalf("MarshalTree: %v", err)
	}
	if !bytes.Equal(d1, d2) {
		t.Error("tree serialization depends on entry order")
	}

	got, err := UnmarshalTree(d1)
	if err != nil {
		t.Fatalf("UnmarshalTree: %v", err)
	}
	want := []TreeEntry{
		{Name: "a.txt", Mode: TreeModeFile, Hash: a},
		{Name: "b.txt", Mode: TreeModeFile, Hash: b},
		{Name: "dir", Mode: TreeModeDir, Hash: sub},
	}
	if diff := cmp.Diff(want, got.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalTreeBinaryLayout(t *testing.T) {
	h := HashObject(TypeBlob, []byte("hi"))
	raw, _ := h.Raw()
	data, err := MarshalTree(&TreeObj{Entries: []TreeEntry{{Name: "hello.txt", Mode: TreeModeFile, Hash: h}}})
	if err != nil {
		t.Fatalf("MarshalTree: %v", err)
	}
	want := append([]byte("100644 hello.txt\x00"), raw...)
	if !bytes.Equal(data, want) {
		t.Errorf("layout = %q, want %q", data, want)
	}
}

// Digests whose raw bytes contain spaces and NULs must not confuse the
// record boundaries.
func TestUnmarshalTreeDigestWithDelimiterBytes(t *testing.T) {
	tricky, err := HashFromRaw([]byte{' ', 0, '\n', ' ', 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 0, ' '})
	if err != nil {
		t.Fatalf("HashFromRaw: %v", err)
	}
	plain := HashObject(TypeBlob, []byte("x"))
	tr := &TreeObj{Entries: []TreeEntry{
		{Name: "a", Mode: TreeModeFile, Hash: tricky},
		{Name: "b c", Mode: TreeModeDir, Hash: plain},
	}}
	data, err := MarshalTree(tr)
	if err != nil {
		t.Fatalf("MarshalTree: %v", err)
	}
	got, err := UnmarshalTree(data)
	if err != nil {
		t.Fatalf("UnmarshalTree: %v", err)
	}
	if diff := cmp.Diff(tr.Entries, got.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalTreeRejectsBadEntries(t *testing.T) {
	h := HashObject(TypeBlob, nil)
	cases := map[string][]TreeEntry{
		"empty name":   {{Name: "", Mode: TreeModeFile, Hash: h}},
		"slash":        {{Name: "a/b", Mode: TreeModeFile, Hash: h}},
		"bad mode":     {{Name: "a", Mode: "100755", Hash: h}},
		"bad hash":     {{Name: "a", Mode: TreeModeFile, Hash: "nothex"}},
		"duplicate":    {{Name: "a", Mode: TreeModeFile, Hash: h}, {Name: "a", Mode: TreeModeDir, Hash: h}},
		"dot dot name": {{Name: "..", Mode: TreeModeDir, Hash: h}},
	}
	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := MarshalTree(&TreeObj{Entries: entries}); err == nil {
				t.Error("MarshalTree succeeded, want error")
			}
		})
	}
}

func TestUnmarshalTreeTruncated(t *testing.T) {
	h := HashObject(TypeBlob, nil)
	data, err := MarshalTree(&TreeObj{Entries: []TreeEntry{{Name: "f", Mode: TreeModeFile, Hash: h}}})
	if err != nil {
		t.Fatalf("MarshalTree: %v", err)
	}
	if _, err := UnmarshalTree(data[:len(data)-1]); !errors.Is(err, ErrCorrupt) {
		t.Errorf("err = %v, want ErrCorrupt", err)
	}
	if _, err := UnmarshalTree([]byte("777 x\x00")); !errors.Is(err, ErrCorrupt) {
		t.Errorf("unknown mode: err = %v, want ErrCorrupt", err)
	}
}

func TestUnmarshalEmptyTree(t *testing.T) {
	tr, err := UnmarshalTree(nil)
	if err != nil {
		t.Fatalf("UnmarshalTree: %v", err)
	}
	if len(tr.Entries) != 0 {
		t.Errorf("entries = %d, want 0", len(tr.Entries))
	}
}

func TestMarshalCommitLayout(t *testing.T) {
	tree := HashObject(TypeTree, nil)
	parent := HashObject(TypeCommit, []byte("p"))
	c := &CommitObj{
		TreeHash:          tree,
		Parent:            parent,
		Author:            "HPN User <user@hpn.local>",
		AuthorTime:        1700000000,
		AuthorTimezone:    "+0000",
		Committer:         "HPN User <user@hpn.local>",
		CommitterTime:     1700000000,
		CommitterTimezone: "+0000",
		Message:           "first",
	}
	want := "tree " + string(tree) + "\n" +
		"parent " + string(parent) + "\n" +
		"author HPN User <user@hpn.local> 1700000000 +0000\n" +
		"committer HPN User <user@hpn.local> 1700000000 +0000\n" +
		"\n" +
		"first\n"
	if got := string(MarshalCommit(c)); got != want {
		t.Errorf("MarshalCommit =\n%q\nwant\n%q", got, want)
	}

	back, err := UnmarshalCommit(MarshalCommit(c))
	if err != nil {
		t.Fatalf("UnmarshalCommit: %v", err)
	}
	if diff := cmp.Diff(c, back); diff != "" {
		t.Errorf("commit round trip (-want +got):\n%s", diff)
	}
}

func TestCommitRootHasNoParentLine(t *testing.T) {
	c := &CommitObj{
		TreeHash:       HashObject(TypeTree, nil),
		Author:         "a",
		AuthorTimezone: "+0000",
		Committer:      "a",
		Message:        "multi\nline\n\nmessage\n",
	}
	data := MarshalCommit(c)
	if bytes.Contains(data, []byte("parent ")) {
		t.Error("root commit serialized a parent line")
	}
	back, err := UnmarshalCommit(data)
	if err != nil {
		t.Fatalf("UnmarshalCommit: %v", err)
	}
	if back.Parent != "" {
		t.Errorf("Parent = %q, want empty", back.Parent)
	}
	if back.Message != c.Message {
		t.Errorf("Message = %q, want %q", back.Message, c.Message)
	}
}

func TestUnmarshalCommitErrors(t *testing.T) {
	tree := string(HashObject(TypeTree, nil))
	cases := map[string]string{
		"no separator":  "tree " + tree + "\n",
		"unknown key":   "tree " + tree + "\nfoo bar\n\nmsg\n",
		"two parents":   "tree " + tree + "\nparent " + tree + "\nparent " + tree + "\n\nmsg\n",
		"bad timestamp": "tree " + tree + "\nauthor a x +0000\n\nmsg\n",
		"missing tree":  "author a 1 +0000\n\nmsg\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := UnmarshalCommit([]byte(in)); !errors.Is(err, ErrCorrupt) {
				t.Errorf("err = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestCommitSigningPayloadExcludesSignature(t *testing.T) {
	c := &CommitObj{TreeHash: HashObject(TypeTree, nil), Message: "m", Signature: "sig"}
	payload := CommitSigningPayload(c)
	if bytes.Contains(payload, []byte("signature")) {
		t.Error("signing payload contains signature line")
	}
	if !bytes.Contains(MarshalCommit(c), []byte("signature sig\n")) {
		t.Error("MarshalCommit dropped signature line")
	}
	if c.Signature != "sig" {
		t.Error("CommitSigningPayload mutated its input")
	}
}

func TestUnmarshalTreeRejectsEscapingNames(t *testing.T) {
	raw, _ := HashObject(TypeBlob, nil).Raw()
	for _, name := range []string{"..", "a/b", ""} {
		data := append([]byte("100644 "+name+"\x00"), raw...)
		if _, err := UnmarshalTree(data); !errors.Is(err, ErrCorrupt) {
			t.Errorf("name %q: err = %v, want ErrCorrupt", name, err)
		}
	}
}

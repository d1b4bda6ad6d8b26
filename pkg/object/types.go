package object

// Hash is a 40-character lowercase hex-encoded SHA-1 digest.
type Hash string

// HashSize is the length of a raw (binary) digest in bytes.
const HashSize = 20

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

// Valid reports whether t is one of the known object kinds.
func (t ObjectType) Valid() bool {
	switch t {
	case TypeBlob, TypeTree, TypeCommit:
		return true
	}
	return false
}

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir  = "40000"
	TreeModeFile = "100644"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object.
type TreeEntry struct {
	Name string
	Mode string
	Hash Hash
}

// IsDir reports whether the entry points at a subtree.
func (e TreeEntry) IsDir() bool {
	return e.Mode == TreeModeDir
}

// TreeObj holds a list of tree entries. Serialization sorts them by Name.
type TreeObj struct {
	Entries []TreeEntry
}

// CommitObj represents a commit pointing to a tree with metadata. History is
// a chain: a commit has at most one parent.
type CommitObj struct {
	TreeHash          Hash
	Parent            Hash // empty for a root commit
	Author            string
	AuthorTime        int64
	AuthorTimezone    string
	Committer         string
	CommitterTime     int64
	CommitterTimezone string
	Signature         string
	Message           string
}

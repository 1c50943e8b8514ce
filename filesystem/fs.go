package filesystem

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/brettbedarf/daapfs/internal/util"
	"github.com/google/uuid"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"
)

// FileSystem owns the single music tree. Its first level directories are
// handed out as leases; everything below them is only mutated through the
// owning [Subtree].
type FileSystem struct {
	root    *Node                        // Root of node tree
	lastIno atomic.Uint64                // Last fuse Attr.Ino assigned; incremented when new nodes are created
	leases  *xsync.Map[string, *Subtree] // leased first level names
}

func NewFS() *FileSystem {
	fs := FileSystem{
		root:   newDirNode("", fuse.FUSE_ROOT_ID),
		leases: xsync.NewMap[string, *Subtree](),
	}
	fs.lastIno.Store(fuse.FUSE_ROOT_ID)
	return &fs
}

func (fs *FileSystem) Root() *Node {
	return fs.root
}

func (fs *FileSystem) nextIno() uint64 {
	return fs.lastIno.Add(1)
}

// RequestLease grants exclusive mutation rights over the directory name
// directly below the root, creating it if missing. A name can only ever be
// leased once.
func (fs *FileSystem) RequestLease(name string) (*Subtree, error) {
	logger := util.GetLogger("FS.RequestLease")

	trimmed := strings.Trim(name, "/")
	if trimmed == "" || trimmed == "." || trimmed == ".." || strings.Contains(trimmed, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeaseDepth, name)
	}
	if _, held := fs.leases.Load(trimmed); held {
		return nil, fmt.Errorf("%w: %s", ErrLeaseAlreadyHeld, trimmed)
	}

	dir, err := fs.root.AddChild(newDirNode(trimmed, fs.nextIno()))
	if err != nil {
		return nil, err
	}

	sub := &Subtree{id: uuid.New(), name: trimmed, fs: fs, root: dir}
	// only one concurrent caller stores
	if _, loaded := fs.leases.LoadOrStore(trimmed, sub); loaded {
		return nil, fmt.Errorf("%w: %s", ErrLeaseAlreadyHeld, trimmed)
	}
	logger.Info().Str("lease", trimmed).Str("leaseID", sub.id.String()).Msg("Granted subtree lease")
	return sub, nil
}

// FetchInode resolves p from the root of the tree
func (fs *FileSystem) FetchInode(p string) (*Node, bool) {
	return Resolve(fs.root, p)
}

// Stat resolves p and returns a snapshot of what is found
func (fs *FileSystem) Stat(p string) (Stat, bool) {
	node, ok := fs.FetchInode(p)
	if !ok {
		return Stat{}, false
	}
	return node.Stat(), true
}

// Leases returns every leased name sorted
func (fs *FileSystem) Leases() []string {
	out := make([]string, 0, fs.leases.Size())
	fs.leases.Range(func(name string, _ *Subtree) bool {
		out = append(out, name)
		return true
	})
	sort.Strings(out)
	return out
}

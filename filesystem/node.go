package filesystem

import (
	"fmt"
	"sort"
	"sync"

	"github.com/brettbedarf/daapfs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"
)

// Node is a directory or a file of the music tree. Name, attributes and track
// never change after creation; only a directory's children and the parent ref
// do.
type Node struct {
	name     string
	attr     fuse.Attr
	track    daapfs.Track              // nil for directories
	children *xsync.Map[string, *Node] // thread-safe map of child nodes by name; nil for files
	parent   *Node                     // Protected by mu
	mu       sync.RWMutex              // Protects the fields above
}

func newDirNode(name string, ino uint64) *Node {
	return &Node{
		name:     name,
		attr:     newDirAttr(ino),
		children: xsync.NewMap[string, *Node](),
	}
}

func newFileNode(name string, ino uint64, size int64, track daapfs.Track) *Node {
	return &Node{
		name:  name,
		attr:  newFileAttr(ino, size),
		track: track,
	}
}

// Name returns the node's immutable Name.
func (n *Node) Name() string {
	return n.name
}

func (n *Node) IsDir() bool {
	return n.children != nil
}

// Attr returns a copy of the fuse attributes
func (n *Node) Attr() fuse.Attr {
	return n.attr
}

// Size is the byte length of a file; directories report 0
func (n *Node) Size() int64 {
	return int64(n.attr.Size)
}

// Track returns the remote track backing a file or nil for directories
func (n *Node) Track() daapfs.Track {
	return n.track
}

func (n *Node) Stat() Stat {
	return Stat{Name: n.name, Attr: n.attr, Dir: n.IsDir()}
}

// Parent returns the directory this node is linked under; nil when detached
func (n *Node) Parent() *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

func (n *Node) setParent(p *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.parent = p
}

// Path returns the path of the node relative from root.
// If the node is the root or detached, returns its name only
func (n *Node) Path() string {
	p := n.Parent()
	if p == nil {
		return n.name
	}
	pPath := p.Path()
	if pPath == "" {
		return n.name
	}
	return pPath + "/" + n.name
}

// AddChild links child under the node in a single atomic step and returns
// the node now stored under child's name.
//
// Adding a directory over an existing directory returns the existing one.
// Every other clash is an [ErrNameConflict]; a file parent is an
// [ErrNotADirectory].
func (n *Node) AddChild(child *Node) (*Node, error) {
	if !n.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, n.name)
	}

	child.setParent(n)
	existing, loaded := n.children.LoadOrStore(child.name, child)
	if !loaded {
		return child, nil
	}
	child.setParent(nil)

	if existing.IsDir() && child.IsDir() {
		return existing, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNameConflict, n.name, child.name)
}

// GetChild returns a child node; files never have any
func (n *Node) GetChild(name string) (child *Node, ok bool) {
	if !n.IsDir() {
		return nil, false
	}
	return n.children.Load(name)
}

// RemoveChild unlinks the named child. Returns false if there was none
func (n *Node) RemoveChild(name string) bool {
	if !n.IsDir() {
		return false
	}
	if child, exists := n.children.LoadAndDelete(name); exists {
		child.setParent(nil)
		return true
	}
	return false
}

// Children returns a snapshot of the children sorted by name
func (n *Node) Children() []*Node {
	if !n.IsDir() {
		return nil
	}
	out := make([]*Node, 0, n.children.Size())
	n.children.Range(func(_ string, child *Node) bool {
		out = append(out, child)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (n *Node) ChildCount() int {
	if !n.IsDir() {
		return 0
	}
	return n.children.Size()
}

package filesystem

import (
	"fmt"
	"strings"
	"sync"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/internal/util"
	"github.com/google/uuid"
)

// Subtree is the exclusive handle over one leased directory. Paths given to
// it are relative to that directory.
//
// Mutations are serialized by the handle and each one is published to
// readers with a single link or unlink, so a composite change such as
// creating a file with missing parents is observed entirely or not at all.
type Subtree struct {
	id   uuid.UUID
	name string
	fs   *FileSystem
	root *Node
	mu   sync.Mutex
}

// ID uniquely identifies the lease in logs
func (s *Subtree) ID() uuid.UUID {
	return s.id
}

// Name is the leased directory name below the global root
func (s *Subtree) Name() string {
	return s.name
}

func (s *Subtree) Root() *Node {
	return s.root
}

// Lookup resolves p relative to the handle root
func (s *Subtree) Lookup(p string) (*Node, bool) {
	return Resolve(s.root, p)
}

// MkDir creates every missing directory of p like `mkdir -p` and returns the
// terminal directory. An empty path returns the handle root.
func (s *Subtree) MkDir(p string) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.graftLocked(splitPath(p), nil)
}

// AddFile creates a file of size bytes backed by track at p together with any
// missing parent directories. An existing entry of the same name is never
// replaced.
func (s *Subtree) AddFile(p string, size int64, track daapfs.Track) (*Node, error) {
	logger := util.GetLogger("Subtree.AddFile")

	segs := splitPath(p)
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNameConflict, s.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file := newFileNode(segs[len(segs)-1], s.fs.nextIno(), size, track)
	node, err := s.graftLocked(segs[:len(segs)-1], file)
	if err != nil {
		return nil, err
	}
	logger.Trace().Str("lease", s.name).Str("path", p).Int64("size", size).Msg("Added file node")
	return node, nil
}

// graftLocked walks dirs from the handle root. The missing part of the chain,
// ending in leaf when one is given, is built detached and linked at the first
// missing segment. Returns leaf, or the terminal directory when leaf is nil.
func (s *Subtree) graftLocked(dirs []string, leaf *Node) (*Node, error) {
	cur := s.root
	for i, seg := range dirs {
		child, ok := cur.GetChild(seg)
		if !ok {
			top, end := s.chain(dirs[i:], leaf)
			if _, err := cur.AddChild(top); err != nil {
				return nil, err
			}
			return end, nil
		}
		if !child.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrNotADirectory, strings.Join(dirs[:i+1], "/"))
		}
		cur = child
	}
	if leaf == nil {
		return cur, nil
	}
	return cur.AddChild(leaf)
}

// chain builds a detached directory chain for the non-empty dirs
func (s *Subtree) chain(dirs []string, leaf *Node) (top, end *Node) {
	for _, seg := range dirs {
		dir := newDirNode(seg, s.fs.nextIno())
		if top == nil {
			top = dir
		} else {
			_, _ = end.AddChild(dir) // fresh and empty, cannot clash
		}
		end = dir
	}
	if leaf != nil {
		_, _ = end.AddChild(leaf)
		end = leaf
	}
	return top, end
}

// RmInode removes exactly the entry at p, including anything below it.
// Unresolved paths are a no-op.
func (s *Subtree) RmInode(p string) error {
	segs := splitPath(p)
	if len(segs) == 0 {
		return fmt.Errorf("%w: %s", ErrRootRemovalForbidden, s.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := resolveSegs(s.root, segs[:len(segs)-1])
	if !ok {
		return nil
	}
	parent.RemoveChild(segs[len(segs)-1])
	return nil
}

// RRmInode removes the entry at p along with every ancestor left empty by the
// removal, stopping below the handle root. The highest such ancestor is
// unlinked in one step. collapsed reports whether pruning reached the handle
// root, i.e. no directory of p survives.
func (s *Subtree) RRmInode(p string) (collapsed bool, err error) {
	logger := util.GetLogger("Subtree.RRmInode")

	segs := splitPath(p)
	if len(segs) == 0 {
		return false, fmt.Errorf("%w: %s", ErrRootRemovalForbidden, s.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// chain[i] is the directory holding segs[i]
	chain := make([]*Node, 0, len(segs))
	cur := s.root
	for _, seg := range segs {
		chain = append(chain, cur)
		child, ok := cur.GetChild(seg)
		if !ok {
			return false, nil
		}
		cur = child
	}

	cut := len(segs) - 1
	for cut > 0 && chain[cut].ChildCount() == 1 {
		cut--
	}
	chain[cut].RemoveChild(segs[cut])

	collapsed = cut == 0
	logger.Trace().Str("lease", s.name).Str("path", p).Str("unlinked", strings.Join(segs[:cut+1], "/")).Bool("collapsed", collapsed).Msg("Pruned subtree")
	return collapsed, nil
}

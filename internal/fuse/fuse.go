// Package fuse adapts the path based [filesystem.Facade] to go-fuse's node
// API so the music tree can be mounted.
package fuse

import (
	"context"
	"errors"
	"syscall"

	"github.com/brettbedarf/daapfs/config"
	"github.com/brettbedarf/daapfs/filesystem"
	"github.com/brettbedarf/daapfs/internal/util"
	gofs "github.com/hanwen/go-fuse/v2/fs"
	gofuse "github.com/hanwen/go-fuse/v2/fuse"
)

// Node is a kernel visible inode standing for one path of the music tree.
// It holds no tree state of its own; every call is answered by the facade
// so removals made by the views show up immediately.
type Node struct {
	gofs.Inode
	facade   *filesystem.Facade
	path     string
	directIO bool
}

var (
	_ gofs.InodeEmbedder = (*Node)(nil)
	_ gofs.NodeLookuper  = (*Node)(nil)
	_ gofs.NodeGetattrer = (*Node)(nil)
	_ gofs.NodeReaddirer = (*Node)(nil)
	_ gofs.NodeOpener    = (*Node)(nil)
	_ gofs.NodeReader    = (*Node)(nil)
)

// NewRoot returns the root node for facade. With directIO set, opened files
// bypass the kernel page cache.
func NewRoot(facade *filesystem.Facade, directIO bool) *Node {
	return &Node{facade: facade, directIO: directIO}
}

// Path is the node's location relative to the mount root; "" for the root
func (n *Node) Path() string {
	return n.path
}

func (n *Node) childPath(name string) string {
	if n.path == "" {
		return name
	}
	return n.path + "/" + name
}

func (n *Node) Lookup(ctx context.Context, name string, out *gofuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	p := n.childPath(name)
	attr, err := n.facade.Attributes(p)
	if err != nil {
		return nil, toErrno(err)
	}
	out.Attr = attr

	child := &Node{facade: n.facade, path: p, directIO: n.directIO}
	return n.NewInode(ctx, child, gofs.StableAttr{Mode: attr.Mode & syscall.S_IFMT, Ino: attr.Ino}), gofs.OK
}

func (n *Node) Getattr(ctx context.Context, _ gofs.FileHandle, out *gofuse.AttrOut) syscall.Errno {
	attr, err := n.facade.Attributes(n.path)
	if err != nil {
		return toErrno(err)
	}
	out.Attr = attr
	return gofs.OK
}

// Readdir lists the directory without "." and "..", which go-fuse adds
func (n *Node) Readdir(ctx context.Context) (gofs.DirStream, syscall.Errno) {
	attr, err := n.facade.Attributes(n.path)
	if err != nil {
		return nil, toErrno(err)
	}
	if attr.Mode&syscall.S_IFMT != syscall.S_IFDIR {
		return nil, syscall.ENOTDIR
	}

	listed := n.facade.List(n.path)
	entries := make([]gofuse.DirEntry, 0, len(listed))
	for _, e := range listed {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		entries = append(entries, e)
	}
	return gofs.NewListDirStream(entries), gofs.OK
}

func (n *Node) Open(ctx context.Context, flags uint32) (gofs.FileHandle, uint32, syscall.Errno) {
	if err := n.facade.Open(n.path, flags); err != nil {
		return nil, 0, toErrno(err)
	}
	var fuseFlags uint32
	if n.directIO {
		fuseFlags |= gofuse.FOPEN_DIRECT_IO
	}
	return nil, fuseFlags, gofs.OK
}

func (n *Node) Read(ctx context.Context, _ gofs.FileHandle, dest []byte, off int64) (gofuse.ReadResult, syscall.Errno) {
	data, err := n.facade.Read(ctx, n.path, len(dest), off)
	if err != nil {
		return nil, toErrno(err)
	}
	return gofuse.ReadResultData(data), gofs.OK
}

// toErrno maps facade errors to what the kernel expects. Anything not
// recognized, such as a failed remote fetch, is an I/O error.
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return gofs.OK
	case errors.Is(err, filesystem.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, filesystem.ErrAccessDenied):
		return syscall.EACCES
	case errors.Is(err, filesystem.ErrIsDir):
		return syscall.EISDIR
	case errors.Is(err, filesystem.ErrNotADirectory):
		return syscall.ENOTDIR
	case errors.Is(err, context.Canceled):
		return syscall.EINTR
	default:
		return syscall.EIO
	}
}

// Mount mounts the tree answered by facade at mountPoint. The returned
// server is already serving.
func Mount(mountPoint string, facade *filesystem.Facade, cfg *config.Config) (*gofuse.Server, error) {
	attrTimeout := util.Seconds(cfg.AttrTimeout)
	entryTimeout := util.Seconds(cfg.EntryTimeout)

	return gofs.Mount(mountPoint, NewRoot(facade, cfg.DirectIO), &gofs.Options{
		AttrTimeout:  &attrTimeout,
		EntryTimeout: &entryTimeout,
		Logger:       util.NewLogLogger("FuseFS"),
		MountOptions: gofuse.MountOptions{
			FsName:     cfg.FsName,
			Name:       cfg.Name,
			Debug:      cfg.Debug,
			AllowOther: cfg.AllowOther,
			Options:    []string{"ro"},
			Logger:     util.NewLogLogger("FuseServer"),
		},
	})
}

package filesystem

import (
	"os"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
)

type SysAttrType uint32

const (
	DirAttr  SysAttrType = syscall.S_IFDIR
	FileAttr SysAttrType = syscall.S_IFREG

	// Everything is read-only for everyone
	DirPerms  uint32 = 0o555
	FilePerms uint32 = 0o444
)

// Stat is a point-in-time snapshot of a node handed to readers
type Stat struct {
	Name string
	Attr fuse.Attr
	Dir  bool
}

func newDirAttr(ino uint64) fuse.Attr {
	attr := newDefaultAttr(ino)
	attr.Mode = uint32(DirAttr) | DirPerms
	attr.Nlink = 2
	return attr
}

func newFileAttr(ino uint64, size int64) fuse.Attr {
	attr := newDefaultAttr(ino)
	attr.Mode = uint32(FileAttr) | FilePerms
	if size > 0 {
		attr.Size = uint64(size)
		attr.Blocks = (attr.Size + 511) / 512
	}
	return attr
}

// newDefaultAttr returns the default attributes for a new node
// NOTE: Make sure to set the Mode field appropriately
func newDefaultAttr(ino uint64) fuse.Attr {
	now := time.Now()
	return fuse.Attr{
		Ino:   ino,
		Nlink: 1,
		Owner: fuse.Owner{
			Uid: uint32(os.Getuid()),
			Gid: uint32(os.Getgid()),
		},
		Atime:     uint64(now.Unix()),
		Mtime:     uint64(now.Unix()),
		Ctime:     uint64(now.Unix()),
		Atimensec: uint32(now.Nanosecond()),
		Mtimensec: uint32(now.Nanosecond()),
		Ctimensec: uint32(now.Nanosecond()),
		Blksize:   4096, // preferred size for fs ops
	}
}

package filesystem

import (
	"context"
	"fmt"
	"io"
	"strings"
	"syscall"
	"time"

	"github.com/brettbedarf/daapfs/internal/metrics"
	"github.com/brettbedarf/daapfs/internal/util"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Facade answers filesystem calls by path against a [FileSystem]
type Facade struct {
	fs *FileSystem
}

func NewFacade(fs *FileSystem) *Facade {
	return &Facade{fs: fs}
}

// Attributes returns the attributes of the node at p
func (f *Facade) Attributes(p string) (fuse.Attr, error) {
	node, ok := f.fs.FetchInode(p)
	if !ok {
		return fuse.Attr{}, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return node.Attr(), nil
}

// List returns "." and ".." followed by the children of the directory at p
// sorted by name. Missing paths and files list only the first two.
func (f *Facade) List(p string) []fuse.DirEntry {
	dirMode := uint32(DirAttr) | DirPerms
	entries := []fuse.DirEntry{
		{Name: ".", Mode: dirMode},
		{Name: "..", Mode: dirMode},
	}

	node, ok := f.fs.FetchInode(p)
	if !ok || !node.IsDir() {
		return entries
	}
	entries[0].Ino = node.attr.Ino
	if parent := node.Parent(); parent != nil {
		entries[1].Ino = parent.attr.Ino
	}

	for _, child := range node.Children() {
		if strings.TrimSpace(child.name) == "" {
			continue
		}
		entries = append(entries, fuse.DirEntry{
			Name: child.name,
			Mode: child.attr.Mode,
			Ino:  child.attr.Ino,
		})
	}
	return entries
}

// Open checks that p exists and flags only ask for reading
func (f *Facade) Open(p string, flags uint32) error {
	if _, ok := f.fs.FetchInode(p); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if flags&syscall.O_ACCMODE != syscall.O_RDONLY {
		return fmt.Errorf("%w: %s", ErrAccessDenied, p)
	}
	return nil
}

// Read returns up to size bytes of the file at p starting at offset, fetched
// with a single range request. Reads at or past the end return nothing
// without contacting the remote.
func (f *Facade) Read(ctx context.Context, p string, size int, offset int64) ([]byte, error) {
	logger := util.GetLogger("Facade.Read")

	node, ok := f.fs.FetchInode(p)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if node.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDir, p)
	}

	length := node.Size()
	if offset < 0 || offset >= length || size <= 0 {
		metrics.RecordRead(0, true)
		return []byte{}, nil
	}
	if offset+int64(size) > length {
		size = int(length - offset)
	}

	start := time.Now()
	data, err := fetchRange(ctx, node, offset, size)
	metrics.RecordRangeFetch(time.Since(start))
	if err != nil {
		logger.Error().Err(err).Str("path", p).Int64("offset", offset).Int("size", size).Msg("Failed to fetch range")
		metrics.RecordRead(0, false)
		return nil, err
	}
	logger.Trace().Str("path", p).Int64("offset", offset).Int("size", size).Int("got", len(data)).Msg("Read range")
	metrics.RecordRead(len(data), true)
	return data, nil
}

func fetchRange(ctx context.Context, node *Node, offset int64, size int) ([]byte, error) {
	rc, err := node.Track().ReadRange(ctx, offset, offset+int64(size)-1)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(io.LimitReader(rc, int64(size)))
}

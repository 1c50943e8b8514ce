package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTrack provides an in-memory daapfs.Track implementation for stable
// read tests.
type fakeTrack struct {
	data    []byte
	readErr error
	reads   atomic.Int32
	lastEnd atomic.Int64
}

func (f *fakeTrack) Artist() string { return "artist" }
func (f *fakeTrack) Album() string  { return "album" }
func (f *fakeTrack) Title() string  { return "title" }
func (f *fakeTrack) Format() string { return "mp3" }
func (f *fakeTrack) Size() int64    { return int64(len(f.data)) }

func (f *fakeTrack) ReadRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	f.reads.Add(1)
	f.lastEnd.Store(end)
	if f.readErr != nil {
		return nil, f.readErr
	}
	// hand back more than asked so callers have to bound it
	return io.NopCloser(bytes.NewReader(f.data[start:])), nil
}

// leaseWithFile leases name and adds a file with data at p below it
func leaseWithFile(t *testing.T, fs *FileSystem, name, p string, data []byte) (*Subtree, *fakeTrack) {
	sub, err := fs.RequestLease(name)
	require.NoError(t, err)
	track := &fakeTrack{data: data}
	_, err = sub.AddFile(p, int64(len(data)), track)
	require.NoError(t, err)
	return sub, track
}

func TestNewFS(t *testing.T) {
	fs := NewFS()

	root := fs.Root()
	require.NotNil(t, root)
	assert.True(t, root.IsDir())
	assert.Equal(t, uint64(fuse.FUSE_ROOT_ID), root.Attr().Ino)
	assert.Equal(t, 0, root.ChildCount())
	assert.Empty(t, fs.Leases())
}

func TestFileSystem_RequestLease(t *testing.T) {
	fs := NewFS()

	sub, err := fs.RequestLease("hosts")
	require.NoError(t, err)
	assert.Equal(t, "hosts", sub.Name())
	assert.NotEqual(t, uuid.Nil, sub.ID())

	st, ok := fs.Stat("/hosts")
	require.True(t, ok, "leased directory must be created under the root")
	assert.True(t, st.Dir)

	dir, ok := fs.FetchInode("hosts")
	require.True(t, ok)
	assert.Same(t, sub.Root(), dir)
}

func TestFileSystem_RequestLease_Slashes(t *testing.T) {
	fs := NewFS()

	sub, err := fs.RequestLease("/artists/")
	require.NoError(t, err)
	assert.Equal(t, "artists", sub.Name())
	assert.Equal(t, []string{"artists"}, fs.Leases())
}

func TestFileSystem_RequestLease_InvalidDepth(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "/", "//", "a/b", "/a/b/", ".", ".."} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			fs := NewFS()
			_, err := fs.RequestLease(name)
			assert.ErrorIs(t, err, ErrInvalidLeaseDepth)
			assert.Empty(t, fs.Leases())
		})
	}
}

func TestFileSystem_RequestLease_AlreadyHeld(t *testing.T) {
	fs := NewFS()

	_, err := fs.RequestLease("hosts")
	require.NoError(t, err)

	_, err = fs.RequestLease("hosts")
	assert.ErrorIs(t, err, ErrLeaseAlreadyHeld)
	_, err = fs.RequestLease("/hosts/")
	assert.ErrorIs(t, err, ErrLeaseAlreadyHeld)
}

func TestFileSystem_RequestLease_Concurrent(t *testing.T) {
	fs := NewFS()

	var wg sync.WaitGroup
	var winners atomic.Int32
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := fs.RequestLease("hosts"); err == nil {
				winners.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrLeaseAlreadyHeld)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load(), "exactly one concurrent requester wins")
	assert.Equal(t, 1, fs.Root().ChildCount())
}

func TestFileSystem_Leases_Sorted(t *testing.T) {
	fs := NewFS()
	for _, name := range []string{"hosts", "artists", "genres"} {
		_, err := fs.RequestLease(name)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"artists", "genres", "hosts"}, fs.Leases())
}

func TestFileSystem_FetchInode(t *testing.T) {
	fs := NewFS()
	leaseWithFile(t, fs, "hosts", "den/artist/album/title.mp3", []byte("data"))

	node, ok := fs.FetchInode("/hosts/den/artist/album/title.mp3")
	require.True(t, ok)
	assert.False(t, node.IsDir())
	assert.Equal(t, int64(4), node.Size())

	_, ok = fs.FetchInode("/hosts/den/missing")
	assert.False(t, ok)

	_, ok = fs.Stat("/nowhere")
	assert.False(t, ok)
}

func TestFileSystem_InodesUnique(t *testing.T) {
	fs := NewFS()
	sub, err := fs.RequestLease("hosts")
	require.NoError(t, err)

	seen := map[uint64]string{fuse.FUSE_ROOT_ID: ""}
	for i := range 5 {
		n, err := sub.AddFile(fmt.Sprintf("h/a%d/b/t.mp3", i), 1, nil)
		require.NoError(t, err)
		for cur := n; cur != nil && cur != fs.Root(); cur = cur.Parent() {
			ino := cur.Attr().Ino
			if prev, dup := seen[ino]; dup {
				assert.Equal(t, prev, cur.Path(), "inode %d reused", ino)
			}
			seen[ino] = cur.Path()
		}
	}
}

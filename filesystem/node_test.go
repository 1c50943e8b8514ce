package filesystem

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_AddChild(t *testing.T) {
	parent := newDirNode("parent", 1)
	child := newFileNode("child.mp3", 2, 1024, nil)

	got, err := parent.AddChild(child)
	require.NoError(t, err)
	assert.Same(t, child, got)

	// Verify child was added
	retrievedChild, exists := parent.GetChild("child.mp3")
	require.True(t, exists)
	assert.Same(t, child, retrievedChild)

	// Verify parent reference was set
	assert.Same(t, parent, child.Parent())
}

func TestNode_AddChild_Conflicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing *Node
		added    *Node
		wantErr  error
	}{
		{"file_over_file", newFileNode("x", 2, 1, nil), newFileNode("x", 3, 2, nil), ErrNameConflict},
		{"dir_over_file", newFileNode("x", 2, 1, nil), newDirNode("x", 3), ErrNameConflict},
		{"file_over_dir", newDirNode("x", 2), newFileNode("x", 3, 1, nil), ErrNameConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := newDirNode("parent", 1)
			_, err := parent.AddChild(tt.existing)
			require.NoError(t, err)

			_, err = parent.AddChild(tt.added)
			assert.ErrorIs(t, err, tt.wantErr)

			kept, ok := parent.GetChild("x")
			require.True(t, ok)
			assert.Same(t, tt.existing, kept, "existing entry must never be replaced")
			assert.Nil(t, tt.added.Parent(), "rejected node must stay detached")
		})
	}
}

func TestNode_AddChild_MergeDirs(t *testing.T) {
	parent := newDirNode("parent", 1)
	first := newDirNode("d", 2)
	_, err := parent.AddChild(first)
	require.NoError(t, err)

	got, err := parent.AddChild(newDirNode("d", 3))
	require.NoError(t, err)
	assert.Same(t, first, got, "dir over dir must merge into the existing one")
	assert.Equal(t, 1, parent.ChildCount())
}

func TestNode_AddChild_FileParent(t *testing.T) {
	file := newFileNode("f", 1, 1, nil)

	_, err := file.AddChild(newFileNode("g", 2, 1, nil))
	assert.ErrorIs(t, err, ErrNotADirectory)
}

func TestNode_RemoveChild(t *testing.T) {
	parent := newDirNode("parent", 1)
	child := newFileNode("child.mp3", 2, 1, nil)
	_, err := parent.AddChild(child)
	require.NoError(t, err)

	assert.True(t, parent.RemoveChild("child.mp3"))
	_, exists := parent.GetChild("child.mp3")
	assert.False(t, exists)
	assert.Nil(t, child.Parent(), "removed child must be detached")

	// Remove non-existent child
	assert.False(t, parent.RemoveChild("child.mp3"))
	assert.False(t, child.RemoveChild("anything"), "files have no children")
}

func TestNode_Children_Sorted(t *testing.T) {
	parent := newDirNode("parent", 1)
	for i, name := range []string{"c", "a", "b"} {
		_, err := parent.AddChild(newDirNode(name, uint64(i+2)))
		require.NoError(t, err)
	}

	names := make([]string, 0, 3)
	for _, c := range parent.Children() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, 3, parent.ChildCount())
	assert.Nil(t, newFileNode("f", 9, 1, nil).Children())
}

func TestNode_Path_Nested(t *testing.T) {
	root := newDirNode("", 1)
	a := newDirNode("a", 2)
	b := newFileNode("b.mp3", 3, 1, nil)
	_, err := root.AddChild(a)
	require.NoError(t, err)
	_, err = a.AddChild(b)
	require.NoError(t, err)

	assert.Equal(t, "", root.Path())
	assert.Equal(t, "a", a.Path())
	assert.Equal(t, "a/b.mp3", b.Path())
}

func TestNode_Stat(t *testing.T) {
	dir := newDirNode("d", 5)
	file := newFileNode("f.mp3", 6, 4096, nil)

	ds := dir.Stat()
	assert.Equal(t, "d", ds.Name)
	assert.True(t, ds.Dir)
	assert.Equal(t, uint64(5), ds.Attr.Ino)

	fs := file.Stat()
	assert.False(t, fs.Dir)
	assert.Equal(t, uint64(4096), fs.Attr.Size)
}

func TestNode_ConcurrentChildOperations(t *testing.T) {
	parent := newDirNode("parent", 1)

	var wg sync.WaitGroup
	numGoroutines := 10
	numOperations := 100

	// Concurrent add operations
	for i := range numGoroutines {
		wg.Add(1)
		go func(routineID int) {
			defer wg.Done()
			for j := range numOperations {
				name := fmt.Sprintf("child_%d_%d", routineID, j)
				_, err := parent.AddChild(newFileNode(name, uint64(routineID*1000+j+2), 1, nil))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, numGoroutines*numOperations, parent.ChildCount())

	// Concurrent remove operations
	for i := range numGoroutines {
		wg.Add(1)
		go func(routineID int) {
			defer wg.Done()
			for j := range numOperations {
				parent.RemoveChild(fmt.Sprintf("child_%d_%d", routineID, j))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, parent.ChildCount())
}

func TestNode_ConcurrentSameName(t *testing.T) {
	parent := newDirNode("parent", 1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := parent.AddChild(newFileNode("same", uint64(i+2), 1, nil)); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, winners, "exactly one writer may claim a name")
}

func TestResolve(t *testing.T) {
	root := newDirNode("", 1)
	a := newDirNode("a", 2)
	b := newFileNode("b.mp3", 3, 1, nil)
	_, _ = root.AddChild(a)
	_, _ = a.AddChild(b)

	tests := []struct {
		path string
		want *Node
		ok   bool
	}{
		{"", root, true},
		{"/", root, true},
		{"a", a, true},
		{"/a/", a, true},
		{"a//b.mp3", b, true},
		{"/a/b.mp3", b, true},
		{"missing", nil, false},
		{"a/missing", nil, false},
		{"a/b.mp3/deeper", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Resolve(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Same(t, tt.want, got)
		})
	}
}

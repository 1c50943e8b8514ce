package server

import (
	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/config"
	"github.com/brettbedarf/daapfs/filesystem"
	"github.com/brettbedarf/daapfs/hosts"
	dfuse "github.com/brettbedarf/daapfs/internal/fuse"
	"github.com/brettbedarf/daapfs/internal/names"
	"github.com/brettbedarf/daapfs/internal/util"
	"github.com/brettbedarf/daapfs/views"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// DaapFs wires the music tree, its views and the host manager together and
// exposes the tree over FUSE
type DaapFs struct {
	cfg     *config.Config
	tree    *filesystem.FileSystem
	facade  *filesystem.Facade
	manager *hosts.Manager
	server  *fuse.Server
}

// New builds the tree with one leased view per cfg.Views, registered with
// a host manager in configuration order. Feed discovery events to
// [DaapFs.Listener].
func New(cfg *config.Config, resolver daapfs.Resolver, dialer daapfs.Dialer) (*DaapFs, error) {
	logger := util.GetLogger("DaapFs.New")

	sanitizer, err := names.New(cfg.Charset)
	if err != nil {
		return nil, err
	}
	manager, err := hosts.NewManager(cfg, resolver, dialer)
	if err != nil {
		return nil, err
	}

	tree := filesystem.NewFS()
	for _, kind := range cfg.Views {
		view, err := views.New(kind, tree, sanitizer)
		if err != nil {
			manager.Shutdown()
			return nil, err
		}
		manager.Register(view)
		logger.Debug().Str("view", kind).Msg("View registered")
	}

	return &DaapFs{
		cfg:     cfg,
		tree:    tree,
		facade:  filesystem.NewFacade(tree),
		manager: manager,
	}, nil
}

// Listener receives discovery announcements and withdrawals
func (d *DaapFs) Listener() daapfs.Listener {
	return d.manager
}

func (d *DaapFs) Manager() *hosts.Manager {
	return d.manager
}

func (d *DaapFs) FileSystem() *filesystem.FileSystem {
	return d.tree
}

func (d *DaapFs) Facade() *filesystem.Facade {
	return d.facade
}

// Serve mounts the tree at mountPoint and returns once the kernel has it
func (d *DaapFs) Serve(mountPoint string) error {
	srv, err := dfuse.Mount(mountPoint, d.facade, d.cfg)
	if err != nil {
		return err
	}
	d.server = srv
	return nil
}

// Shutdown disconnects every host. The tree stays mounted until Unmount.
func (d *DaapFs) Shutdown() {
	d.manager.Shutdown()
}

// Unmount cleanly unmounts the filesystem.
func (d *DaapFs) Unmount() error {
	if d.server == nil {
		return nil
	}
	return d.server.Unmount()
}

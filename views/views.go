// Package views projects connected hosts and their tracks into leased
// subtrees of the music tree. Every view owns exactly one lease and is
// notified by the host manager as a daapfs.Observer.
package views

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/config"
	"github.com/brettbedarf/daapfs/filesystem"
	"github.com/brettbedarf/daapfs/internal/names"
	"github.com/brettbedarf/daapfs/internal/util"
	"github.com/puzpuzpuz/xsync/v4"
)

var ErrUnknownView = errors.New("unknown view")

// New leases the directory named after kind and returns the view projecting
// into it
func New(kind string, fs *filesystem.FileSystem, sanitizer *names.Sanitizer) (daapfs.Observer, error) {
	switch kind {
	case config.HostsView, config.ArtistsView:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, kind)
	}

	sub, err := fs.RequestLease(kind)
	if err != nil {
		return nil, err
	}
	if kind == config.HostsView {
		return NewHostView(sub, sanitizer), nil
	}
	return NewArtistView(sub, sanitizer), nil
}

// pathRecord is the set of file paths one host created in a view
type pathRecord struct {
	mu    sync.Mutex
	paths []string
	set   map[string]struct{}
}

func (r *pathRecord) add(p string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, p)
	r.set[p] = struct{}{}
}

func (r *pathRecord) has(p string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.set[p]
	return ok
}

func (r *pathRecord) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// view holds what every projection shares: its lease, the sanitizer and the
// per host records used to undo a host's arrival
type view struct {
	sub       *filesystem.Subtree
	sanitizer *names.Sanitizer
	records   *xsync.Map[string, *pathRecord]
}

func newView(sub *filesystem.Subtree, sanitizer *names.Sanitizer) view {
	return view{
		sub:       sub,
		sanitizer: sanitizer,
		records:   xsync.NewMap[string, *pathRecord](),
	}
}

func (v *view) record(host string) *pathRecord {
	rec, _ := v.records.LoadOrStore(host, &pathRecord{set: make(map[string]struct{})})
	return rec
}

// owns reports whether host created p in this view
func (v *view) owns(host, p string) bool {
	rec, ok := v.records.Load(host)
	return ok && rec.has(p)
}

// fileName is "<title>.<format>" with both parts cleaned
func (v *view) fileName(t daapfs.Track) string {
	return v.sanitizer.Clean(t.Title()) + "." + v.sanitizer.Clean(t.Format())
}

// addFile creates p for track and records it under host
func (v *view) addFile(host, p string, t daapfs.Track) error {
	if _, err := v.sub.AddFile(p, t.Size(), t); err != nil {
		return err
	}
	v.record(host).add(p)
	return nil
}

// HostDeparted prunes every path the host created along with any directory
// left empty. Unknown hosts are a no-op.
func (v *view) HostDeparted(host string) {
	logger := util.GetLogger("View.HostDeparted")

	rec, ok := v.records.LoadAndDelete(host)
	if !ok {
		logger.Debug().Str("lease", v.sub.Name()).Str("host", host).Msg("No paths recorded for host")
		return
	}

	paths := rec.snapshot()
	for _, p := range paths {
		if _, err := v.sub.RRmInode(p); err != nil {
			logger.Warn().Err(err).Str("lease", v.sub.Name()).Str("path", p).Msg("Failed to remove path")
		}
	}
	logger.Info().Str("lease", v.sub.Name()).Str("host", host).Int("removed", len(paths)).Msg("Removed host from view")
}

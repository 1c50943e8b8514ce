package views

import (
	"errors"
	"path"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/filesystem"
	"github.com/brettbedarf/daapfs/internal/names"
	"github.com/brettbedarf/daapfs/internal/util"
)

// HostView lays tracks out as <host>/<artist>/<album>/<title>.<format>
type HostView struct {
	view
}

var _ daapfs.Observer = (*HostView)(nil)

func NewHostView(sub *filesystem.Subtree, sanitizer *names.Sanitizer) *HostView {
	return &HostView{view: newView(sub, sanitizer)}
}

// HostArrived adds every track of host. A track whose path is already taken
// by an earlier track of the same host is skipped.
func (v *HostView) HostArrived(host string, tracks []daapfs.Track) {
	logger := util.GetLogger("HostView.HostArrived")

	added := 0
	for _, t := range tracks {
		p := path.Join(host, v.sanitizer.Clean(t.Artist()), v.sanitizer.Clean(t.Album()), v.fileName(t))
		if err := v.addFile(host, p, t); err != nil {
			if errors.Is(err, filesystem.ErrNameConflict) {
				logger.Debug().Str("host", host).Str("path", p).Msg("Skipping duplicate track")
			} else {
				logger.Warn().Err(err).Str("host", host).Str("path", p).Msg("Failed to add track")
			}
			continue
		}
		added++
	}
	logger.Info().Str("host", host).Int("tracks", added).Msg("Added host to view")
}

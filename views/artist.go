package views

import (
	"errors"
	"path"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/filesystem"
	"github.com/brettbedarf/daapfs/internal/names"
	"github.com/brettbedarf/daapfs/internal/util"
)

// ArtistView merges all hosts as <artist>/<album>/<title>.<format>. When
// another host already holds the name the track becomes
// <host>-<title>.<format>; if that is taken too the track is skipped.
type ArtistView struct {
	view
}

var _ daapfs.Observer = (*ArtistView)(nil)

func NewArtistView(sub *filesystem.Subtree, sanitizer *names.Sanitizer) *ArtistView {
	return &ArtistView{view: newView(sub, sanitizer)}
}

func (v *ArtistView) HostArrived(host string, tracks []daapfs.Track) {
	logger := util.GetLogger("ArtistView.HostArrived")

	added := 0
	for _, t := range tracks {
		dir := path.Join(v.sanitizer.Clean(t.Artist()), v.sanitizer.Clean(t.Album()))
		name := v.fileName(t)
		p := path.Join(dir, name)

		err := v.addFile(host, p, t)
		if errors.Is(err, filesystem.ErrNameConflict) && !v.owns(host, p) {
			p = path.Join(dir, host+"-"+name)
			err = v.addFile(host, p, t)
		}
		if err != nil {
			if errors.Is(err, filesystem.ErrNameConflict) {
				logger.Debug().Str("host", host).Str("path", p).Msg("Skipping colliding track")
			} else {
				logger.Warn().Err(err).Str("host", host).Str("path", p).Msg("Failed to add track")
			}
			continue
		}
		added++
	}
	logger.Info().Str("host", host).Int("tracks", added).Msg("Added host to view")
}

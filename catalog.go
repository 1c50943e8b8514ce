// Package daapfs contains core domain types and interfaces for the DAAP
// filesystem: the catalog and discovery collaborators plus the observer
// contract implemented by view builders.
package daapfs

import (
	"context"
	"io"
	"net/netip"
)

// DefaultCatalogPort is the TCP port music sharing hosts serve their catalog on
const DefaultCatalogPort = 3689

// Track is a single song exposed by a remote catalog.
// Metadata getters return "" when the remote side did not supply a value.
type Track interface {
	Artist() string
	Album() string
	Title() string
	// Format is the file extension of the underlying media, i.e. "mp3"
	Format() string
	// Size is the byte length of the underlying media file
	Size() int64

	// ReadRange requests the inclusive byte span [start, end] of the track's
	// file. Callers must close the returned reader.
	ReadRange(ctx context.Context, start, end int64) (io.ReadCloser, error)
}

// Session is an authenticated connection to one remote catalog
type Session interface {
	// Tracks lists every track in the remote library
	Tracks(ctx context.Context) ([]Track, error)

	// Close logs out and releases the connection. It must return once ctx
	// is done.
	Close(ctx context.Context) error
}

// Dialer connects and authenticates against a catalog at a resolved address.
// Implementations should handle resource management (connection pooling etc)
// for the sessions they hand out.
type Dialer interface {
	Dial(ctx context.Context, addr netip.AddrPort) (Session, error)
}

// CatalogOptions configures the dialers a [CatalogProvider] builds
type CatalogOptions struct {
	// Password for catalogs that require authentication; empty for none
	Password string
}

// CatalogProvider builds a [Dialer] for one kind of catalog
type CatalogProvider interface {
	NewDialer(opts CatalogOptions) (Dialer, error)
}

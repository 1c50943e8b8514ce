package daapfs

import (
	"context"
	"net/netip"
)

// DefaultServiceType is the zeroconf service type of music sharing hosts
const DefaultServiceType = "_daap._tcp"

// DefaultDomain is the zeroconf browse domain
const DefaultDomain = "local."

// Listener receives raw discovery events. Names are full service instance
// names such as "cool music._daap._tcp.local.".
type Listener interface {
	ServiceAnnounced(name string)
	ServiceWithdrawn(name string)
}

// Resolver turns an announced service instance name into an address.
// The caller bounds the resolution with ctx.
type Resolver interface {
	Resolve(ctx context.Context, name string) (netip.Addr, error)
}

// Observer is implemented by view builders that project hosts into the tree.
// Notifications for a given host are never delivered concurrently and a
// departure never overtakes its arrival.
type Observer interface {
	HostArrived(host string, tracks []Track)
	HostDeparted(host string)
}

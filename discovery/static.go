package discovery

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/config"
)

// Static announces and resolves hosts listed in the configuration, for
// networks where multicast discovery is unavailable.
type Static struct {
	names []string
	addrs map[string]netip.Addr
}

func NewStatic(cfg *config.Config) (*Static, error) {
	s := &Static{addrs: make(map[string]netip.Addr, len(cfg.StaticHosts))}
	for _, h := range cfg.StaticHosts {
		addr, err := netip.ParseAddr(h.Address)
		if err != nil {
			return nil, fmt.Errorf("static host %q: %w", h.Name, err)
		}
		name := cfg.ServiceName(h.Name)
		if _, ok := s.addrs[name]; !ok {
			s.names = append(s.names, name)
		}
		s.addrs[name] = addr
	}
	return s, nil
}

// Names returns the full service names in configuration order
func (s *Static) Names() []string {
	return append([]string(nil), s.names...)
}

// Announce reports every static host to l
func (s *Static) Announce(l daapfs.Listener) {
	for _, name := range s.names {
		l.ServiceAnnounced(name)
	}
}

// Run announces every static host now and again every interval until ctx
// is done, retrying hosts whose connection failed. A non positive interval
// announces once.
func (s *Static) Run(ctx context.Context, l daapfs.Listener, interval time.Duration) {
	s.Announce(l)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Announce(l)
		}
	}
}

// Withdraw reports every static host as gone
func (s *Static) Withdraw(l daapfs.Listener) {
	for _, name := range s.names {
		l.ServiceWithdrawn(name)
	}
}

func (s *Static) Resolve(_ context.Context, name string) (netip.Addr, error) {
	addr, ok := s.addrs[name]
	if !ok {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrUnknownHost, name)
	}
	return addr, nil
}

var _ daapfs.Resolver = (*Static)(nil)

package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/config"
	"github.com/grandcat/zeroconf"
)

var (
	ErrUnknownHost = errors.New("unknown host")
	ErrNoAddress   = errors.New("no address resolved")
)

// LookupFunc resolves a single instance delivering entries until ctx is
// done. It matches (*zeroconf.Resolver).Lookup.
type LookupFunc func(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// ZeroconfLookup looks up with a fresh zeroconf resolver per call
func ZeroconfLookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	r, err := zeroconf.NewResolver()
	if err != nil {
		return err
	}
	return r.Lookup(ctx, instance, service, domain, entries)
}

// ZeroconfResolver implements [daapfs.Resolver] with a zeroconf instance
// lookup, preferring the first IPv4 address over IPv6.
type ZeroconfResolver struct {
	service string
	domain  string
	suffix  string
	lookup  LookupFunc
}

// NewZeroconfResolver returns a resolver for cfg's service type. A nil
// lookup uses [ZeroconfLookup].
func NewZeroconfResolver(cfg *config.Config, lookup LookupFunc) *ZeroconfResolver {
	if lookup == nil {
		lookup = ZeroconfLookup
	}
	return &ZeroconfResolver{
		service: strings.TrimSuffix(cfg.ServiceType, "."),
		domain:  cfg.Domain,
		suffix:  "." + cfg.ServiceSuffix(),
		lookup:  lookup,
	}
}

func (r *ZeroconfResolver) Resolve(ctx context.Context, name string) (netip.Addr, error) {
	instance, ok := strings.CutSuffix(name, r.suffix)
	if !ok || instance == "" {
		return netip.Addr{}, fmt.Errorf("%w: %q is not a %s service", ErrUnknownHost, name, r.service)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 4)
	if err := r.lookup(ctx, instance, r.service, r.domain, entries); err != nil {
		return netip.Addr{}, fmt.Errorf("lookup %q: %w", name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return netip.Addr{}, fmt.Errorf("%w for %q: %w", ErrNoAddress, name, ctx.Err())
		case entry, ok := <-entries:
			if !ok {
				return netip.Addr{}, fmt.Errorf("%w for %q", ErrNoAddress, name)
			}
			if addr, ok := entryAddr(entry); ok {
				return addr, nil
			}
		}
	}
}

// entryAddr picks the first IPv4 address of entry, else its first IPv6 one
func entryAddr(entry *zeroconf.ServiceEntry) (netip.Addr, bool) {
	if entry == nil {
		return netip.Addr{}, false
	}
	for _, ips := range [][]net.IP{entry.AddrIPv4, entry.AddrIPv6} {
		for _, ip := range ips {
			if addr, ok := netip.AddrFromSlice(ip); ok {
				return addr.Unmap(), true
			}
		}
	}
	return netip.Addr{}, false
}

// Chain tries each resolver in order and returns the first success
type Chain []daapfs.Resolver

func (c Chain) Resolve(ctx context.Context, name string) (netip.Addr, error) {
	var errs []error
	for _, r := range c {
		addr, err := r.Resolve(ctx, name)
		if err == nil {
			return addr, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrUnknownHost, name)
	}
	return netip.Addr{}, errors.Join(errs...)
}

var (
	_ daapfs.Resolver = (*ZeroconfResolver)(nil)
	_ daapfs.Resolver = Chain(nil)
)

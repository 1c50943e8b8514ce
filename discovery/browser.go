// Package discovery finds catalog hosts on the local network and resolves
// their announced service names to addresses.
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/config"
	"github.com/brettbedarf/daapfs/internal/util"
	"github.com/grandcat/zeroconf"
)

// BrowseFunc starts a zeroconf browse delivering entries until ctx is done.
// It matches (*zeroconf.Resolver).Browse.
type BrowseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// ZeroconfBrowse browses with a fresh zeroconf resolver per call
func ZeroconfBrowse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	r, err := zeroconf.NewResolver()
	if err != nil {
		return err
	}
	return r.Browse(ctx, service, domain, entries)
}

// Browser turns periodic zeroconf browse rounds into announce and withdraw
// events. A name is announced in every round that sees it, so listeners
// that dropped a failed host get it again, and withdrawn once it has been
// missing from MissedBrowses consecutive rounds, or as soon as a goodbye
// (TTL 0) record for it arrives.
type Browser struct {
	service  string
	domain   string
	interval time.Duration
	window   time.Duration
	missed   int
	browse   BrowseFunc
	listener daapfs.Listener

	// consecutive missed rounds per announced name; owned by Run
	known map[string]int
}

// NewBrowser returns a Browser for cfg's service type. A nil browse uses
// [ZeroconfBrowse].
func NewBrowser(cfg *config.Config, listener daapfs.Listener, browse BrowseFunc) *Browser {
	if browse == nil {
		browse = ZeroconfBrowse
	}
	return &Browser{
		service:  strings.TrimSuffix(cfg.ServiceType, "."),
		domain:   cfg.Domain,
		interval: cfg.BrowseInterval,
		window:   cfg.BrowseWindow,
		missed:   max(1, cfg.MissedBrowses),
		browse:   browse,
		listener: listener,
		known:    make(map[string]int),
	}
}

// Run browses until ctx is done. Names still announced at that point are
// not withdrawn; shutdown of the consumer covers them.
func (b *Browser) Run(ctx context.Context) {
	logger := util.GetLogger("Browser")
	logger.Info().Str("service", b.service).Str("domain", b.domain).Msg("Browsing for catalogs")

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Browsing stopped")
			return
		case <-timer.C:
		}
		b.round(ctx)
		timer.Reset(b.interval)
	}
}

// round runs a single browse window and reconciles known names against it
func (b *Browser) round(ctx context.Context) {
	logger := util.GetLogger("Browser.round")

	wctx, cancel := context.WithTimeout(ctx, b.window)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := b.browse(wctx, b.service, b.domain, entries); err != nil {
		// failed rounds do not count as misses
		logger.Warn().Err(err).Msg("Browse failed")
		return
	}

	seen := make(map[string]bool)
	for done := false; !done; {
		select {
		case <-wctx.Done():
			done = true
		case entry, ok := <-entries:
			if !ok {
				done = true
				break
			}
			b.handle(entry, seen)
		}
	}
	if ctx.Err() != nil {
		// interrupted rounds are incomplete
		return
	}

	for name, misses := range b.known {
		if seen[name] {
			b.known[name] = 0
			continue
		}
		misses++
		if misses < b.missed {
			b.known[name] = misses
			continue
		}
		delete(b.known, name)
		logger.Debug().Str("service", name).Int("rounds", misses).Msg("Service no longer browsed")
		b.listener.ServiceWithdrawn(name)
	}
}

func (b *Browser) handle(entry *zeroconf.ServiceEntry, seen map[string]bool) {
	if entry == nil {
		return
	}
	name := entry.ServiceInstanceName()
	_, announced := b.known[name]

	if entry.TTL == 0 {
		delete(seen, name)
		if announced {
			delete(b.known, name)
			b.listener.ServiceWithdrawn(name)
		}
		return
	}

	if seen[name] {
		return
	}
	seen[name] = true
	if !announced {
		b.known[name] = 0
	}
	b.listener.ServiceAnnounced(name)
}

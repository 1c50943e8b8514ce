// Package hosts tracks the lifecycle of discovered music hosts, from
// announcement through resolution and connection to withdrawal, and fans
// arrivals and departures out to the registered observers.
package hosts

import (
	"context"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/config"
	"github.com/brettbedarf/daapfs/internal/metrics"
	"github.com/brettbedarf/daapfs/internal/names"
	"github.com/brettbedarf/daapfs/internal/util"
)

type host struct {
	raw     string
	display string
	session daapfs.Session
}

// announcement is one appearance of a raw name. A name withdrawn and
// announced again gets a new one, so late completions of the old
// appearance can tell they are stale.
type announcement struct {
	display string
}

// Manager implements daapfs.Listener. A host is only handed to observers
// once its catalog is connected and lists at least one track.
type Manager struct {
	cfg       *config.Config
	resolver  daapfs.Resolver
	dialer    daapfs.Dialer
	sanitizer *names.Sanitizer

	ctx     context.Context // parent of every resolution and connection
	cancel  context.CancelFunc
	tasks   sync.WaitGroup
	closing sync.WaitGroup // logouts started outside Shutdown

	mu        sync.Mutex
	closed    bool
	announced map[string]*announcement // raw name -> current appearance
	hosts     map[string]*host         // raw name -> connected host

	// serializes "store + arrive" against "remove + depart"
	notifyMu    sync.Mutex
	observersMu sync.RWMutex
	observers   []daapfs.Observer
}

var _ daapfs.Listener = (*Manager)(nil)

func NewManager(cfg *config.Config, resolver daapfs.Resolver, dialer daapfs.Dialer) (*Manager, error) {
	sanitizer, err := names.New(cfg.Charset)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:       cfg,
		resolver:  resolver,
		dialer:    dialer,
		sanitizer: sanitizer,
		ctx:       ctx,
		cancel:    cancel,
		announced: make(map[string]*announcement),
		hosts:     make(map[string]*host),
	}, nil
}

// Register appends an observer. Observers are notified in registration order.
func (m *Manager) Register(o daapfs.Observer) {
	m.observersMu.Lock()
	defer m.observersMu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *Manager) snapshotObservers() []daapfs.Observer {
	m.observersMu.RLock()
	defer m.observersMu.RUnlock()
	return append([]daapfs.Observer(nil), m.observers...)
}

// ServiceAnnounced starts resolving a newly announced service. Repeated
// announcements of a known name are ignored, as is a name whose display
// name is already taken by another announced service.
func (m *Manager) ServiceAnnounced(name string) {
	logger := util.GetLogger("Manager.ServiceAnnounced")

	display, err := m.sanitizer.HostDisplayName(name, m.cfg.ServiceSuffix())
	if err != nil {
		logger.Warn().Err(err).Str("service", name).Msg("Ignoring announcement")
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if _, dup := m.announced[name]; dup {
		m.mu.Unlock()
		logger.Trace().Str("service", name).Msg("Already announced")
		return
	}
	if owner, taken := m.displayOwnerLocked(display); taken {
		m.mu.Unlock()
		logger.Debug().Str("service", name).Str("host", display).Str("owner", owner).Msg("Host name already in use")
		return
	}
	a := &announcement{display: display}
	m.announced[name] = a
	m.tasks.Add(1)
	m.mu.Unlock()

	task := NewResolveTask(name, m.resolver, m.cfg.ResolveTimeout)
	logger.Info().Str("service", name).Str("host", display).Str("taskID", task.ID().String()).Msg("Service announced, resolving")
	go func() {
		defer m.tasks.Done()
		addr, err := task.Run(m.ctx)
		if err != nil {
			m.forget(name, a)
			return
		}
		m.OnResolved(name, addr)
	}()
}

// displayOwnerLocked returns the raw name announced under display, if any
func (m *Manager) displayOwnerLocked(display string) (string, bool) {
	for raw, a := range m.announced {
		if a.display == display {
			return raw, true
		}
	}
	return "", false
}

// forget drops a failed appearance so a later announcement retries it
func (m *Manager) forget(name string, a *announcement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.announced[name] == a {
		if _, connected := m.hosts[name]; !connected {
			delete(m.announced, name)
		}
	}
}

// ServiceWithdrawn notifies observers of a host's departure and then logs
// out of it in the background. Announced but unconnected names are just
// forgotten.
func (m *Manager) ServiceWithdrawn(name string) {
	logger := util.GetLogger("Manager.ServiceWithdrawn")

	h, connected := m.depart(name)
	if !connected {
		return
	}
	logger.Info().Str("host", h.display).Msg("Service disconnected")
	m.closeSession(&m.closing, h)
}

func (m *Manager) depart(name string) (*host, bool) {
	logger := util.GetLogger("Manager.ServiceWithdrawn")

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	h, connected := m.hosts[name]
	_, announced := m.announced[name]
	delete(m.hosts, name)
	delete(m.announced, name)
	count := len(m.hosts)
	m.mu.Unlock()

	if !connected {
		if announced {
			logger.Debug().Str("service", name).Msg("Dropped unconnected service")
		} else {
			logger.Debug().Str("service", name).Msg("Withdrawal of unknown service")
		}
		return nil, false
	}

	metrics.SetHostsConnected(count)
	for _, o := range m.snapshotObservers() {
		o.HostDeparted(h.display)
	}
	return h, true
}

// OnResolved connects to a resolved host and, if its catalog lists any
// tracks, records it and notifies every observer of its arrival. Completions
// for hosts withdrawn, already connected or after Shutdown are dropped. A
// failed connection forgets the announcement so the host can be retried.
func (m *Manager) OnResolved(name string, addr netip.Addr) {
	logger := util.GetLogger("Manager.OnResolved").With().Str("service", name).Logger()

	m.mu.Lock()
	a, ok := m.pendingLocked(name)
	m.mu.Unlock()
	if !ok {
		logger.Debug().Msg("Dropping stale resolution")
		metrics.RecordHostConnect(metrics.ResultStale)
		return
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.ConnectTimeout)
	defer cancel()

	ap := netip.AddrPortFrom(addr, uint16(m.cfg.CatalogPort))
	sess, err := m.dialer.Dial(ctx, ap)
	if err != nil {
		logger.Info().Err(err).Str("host", a.display).Str("addr", ap.String()).Msg("Could not connect")
		metrics.RecordHostConnect(metrics.ResultError)
		m.forget(name, a)
		return
	}
	h := &host{raw: name, display: a.display, session: sess}

	tracks, err := sess.Tracks(ctx)
	if err != nil {
		logger.Info().Err(err).Str("host", a.display).Msg("Could not list tracks")
		metrics.RecordHostConnect(metrics.ResultError)
		m.closeSession(&m.closing, h)
		m.forget(name, a)
		return
	}
	if len(tracks) == 0 {
		logger.Info().Str("host", a.display).Msg("Host shares no tracks")
		metrics.RecordHostConnect(metrics.ResultEmpty)
		m.closeSession(&m.closing, h)
		return
	}

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if current, ok := m.pendingLocked(name); !ok || current != a {
		m.mu.Unlock()
		logger.Debug().Msg("Host went away while connecting")
		metrics.RecordHostConnect(metrics.ResultStale)
		m.closeSession(&m.closing, h)
		return
	}
	m.hosts[name] = h
	count := len(m.hosts)
	m.mu.Unlock()

	metrics.SetHostsConnected(count)
	metrics.RecordHostConnect(metrics.ResultSuccess)
	logger.Info().Str("host", a.display).Int("tracks", len(tracks)).Msg("Connected to host")
	for _, o := range m.snapshotObservers() {
		o.HostArrived(a.display, tracks)
	}
}

// pendingLocked returns the current appearance of name if it still waits
// for a connection
func (m *Manager) pendingLocked(name string) (*announcement, bool) {
	if m.closed {
		return nil, false
	}
	a, announced := m.announced[name]
	if !announced {
		return nil, false
	}
	if _, connected := m.hosts[name]; connected {
		return nil, false
	}
	for raw, h := range m.hosts {
		if raw != name && h.display == a.display {
			return nil, false
		}
	}
	return a, true
}

// Hosts returns the display names of connected hosts sorted
func (m *Manager) Hosts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.hosts))
	for _, h := range m.hosts {
		out = append(out, h.display)
	}
	sort.Strings(out)
	return out
}

// Wait blocks until every started resolution and background logout has
// completed
func (m *Manager) Wait() {
	m.tasks.Wait()
	m.closing.Wait()
}

// Shutdown stops accepting events, cancels in-flight resolutions and logs
// out of every host, waiting at most the connect timeout for the logouts.
// Observers are not notified. Safe to call more than once.
func (m *Manager) Shutdown() {
	logger := util.GetLogger("Manager.Shutdown")

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	hosts := m.hosts
	m.hosts = make(map[string]*host)
	m.announced = make(map[string]*announcement)
	m.mu.Unlock()

	m.cancel()
	var logouts sync.WaitGroup
	for _, h := range hosts {
		m.closeSession(&logouts, h)
	}
	metrics.SetHostsConnected(0)

	done := make(chan struct{})
	go func() {
		logouts.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info().Int("closed", len(hosts)).Msg("Host manager shut down")
	case <-time.After(m.cfg.ConnectTimeout):
		logger.Warn().Int("hosts", len(hosts)).Msg("Host manager shut down with logouts still pending")
	}
}

// closeSession logs out of a host on its own goroutine tracked by wg,
// bounded by the connect timeout and swallowing any error
func (m *Manager) closeSession(wg *sync.WaitGroup, h *host) {
	wg.Go(func() {
		logger := util.GetLogger("Manager.closeSession")

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
		defer cancel()
		if err := h.session.Close(ctx); err != nil {
			logger.Warn().Err(err).Str("host", h.display).Msg("Failed to close session")
		}
	})
}

package hosts

import (
	"context"
	"net/netip"
	"time"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/internal/metrics"
	"github.com/brettbedarf/daapfs/internal/util"
	"github.com/google/uuid"
)

// ResolveTask resolves one announced service name to an address within a
// bounded time. Each announcement gets its own task running on its own
// goroutine.
type ResolveTask struct {
	id       uuid.UUID
	name     string
	resolver daapfs.Resolver
	timeout  time.Duration
}

func NewResolveTask(name string, resolver daapfs.Resolver, timeout time.Duration) *ResolveTask {
	return &ResolveTask{
		id:       uuid.New(),
		name:     name,
		resolver: resolver,
		timeout:  timeout,
	}
}

func (t *ResolveTask) ID() uuid.UUID {
	return t.id
}

func (t *ResolveTask) Name() string {
	return t.name
}

// Run resolves the name bounded by the task timeout and ctx
func (t *ResolveTask) Run(ctx context.Context) (netip.Addr, error) {
	logger := util.GetLogger("ResolveTask").With().Str("taskID", t.id.String()).Str("service", t.name).Logger()

	rctx, cancel := context.WithTimeout(ctx, t.timeout)
	addr, err := t.resolver.Resolve(rctx, t.name)
	cancel()
	metrics.RecordResolution(err == nil)

	if err != nil {
		logger.Info().Err(err).Dur("timeout", t.timeout).Msg("Service discovery failed")
		return netip.Addr{}, err
	}
	logger.Debug().Str("addr", addr.String()).Msg("Resolved service")
	return addr, nil
}

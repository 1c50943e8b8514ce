package mocks

import (
	"context"
	"net/netip"

	"github.com/brettbedarf/daapfs"
	"github.com/stretchr/testify/mock"
)

// MockResolver implements daapfs.Resolver for testing across packages
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, name string) (netip.Addr, error) {
	args := m.Called(ctx, name)

	// Handle function return types (blocking resolutions)
	if fn, ok := args.Get(0).(func(context.Context, string) netip.Addr); ok {
		return fn(ctx, name), args.Error(1)
	}
	return args.Get(0).(netip.Addr), args.Error(1)
}

var _ daapfs.Resolver = (*MockResolver)(nil)

// MockListener implements daapfs.Listener for testing across packages
type MockListener struct {
	mock.Mock
}

func (m *MockListener) ServiceAnnounced(name string) { m.Called(name) }
func (m *MockListener) ServiceWithdrawn(name string) { m.Called(name) }

var _ daapfs.Listener = (*MockListener)(nil)

// MockObserver implements daapfs.Observer for testing across packages
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) HostArrived(host string, tracks []daapfs.Track) { m.Called(host, tracks) }
func (m *MockObserver) HostDeparted(host string)                       { m.Called(host) }

var _ daapfs.Observer = (*MockObserver)(nil)

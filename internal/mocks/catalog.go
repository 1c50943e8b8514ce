package mocks

import (
	"context"
	"io"
	"net/netip"

	"github.com/brettbedarf/daapfs"
	"github.com/stretchr/testify/mock"
)

// MockTrack implements daapfs.Track for testing across packages
type MockTrack struct {
	mock.Mock
}

func (m *MockTrack) Artist() string { return m.Called().String(0) }
func (m *MockTrack) Album() string  { return m.Called().String(0) }
func (m *MockTrack) Title() string  { return m.Called().String(0) }
func (m *MockTrack) Format() string { return m.Called().String(0) }

func (m *MockTrack) Size() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

func (m *MockTrack) ReadRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	args := m.Called(ctx, start, end)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(context.Context, int64, int64) io.ReadCloser); ok {
		return fn(ctx, start, end), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

var _ daapfs.Track = (*MockTrack)(nil)

// NewMockTrack returns a MockTrack with its metadata getters already stubbed
func NewMockTrack(artist, album, title, format string, size int64) *MockTrack {
	m := &MockTrack{}
	m.On("Artist").Return(artist).Maybe()
	m.On("Album").Return(album).Maybe()
	m.On("Title").Return(title).Maybe()
	m.On("Format").Return(format).Maybe()
	m.On("Size").Return(size).Maybe()
	return m
}

// MockSession implements daapfs.Session for testing across packages
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Tracks(ctx context.Context) ([]daapfs.Track, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]daapfs.Track), args.Error(1)
}

func (m *MockSession) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ daapfs.Session = (*MockSession)(nil)

// MockDialer implements daapfs.Dialer for testing across packages
type MockDialer struct {
	mock.Mock
}

func (m *MockDialer) Dial(ctx context.Context, addr netip.AddrPort) (daapfs.Session, error) {
	args := m.Called(ctx, addr)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(context.Context, netip.AddrPort) daapfs.Session); ok {
		return fn(ctx, addr), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(daapfs.Session), args.Error(1)
}

var _ daapfs.Dialer = (*MockDialer)(nil)

// MockCatalogProvider implements daapfs.CatalogProvider for testing across packages
type MockCatalogProvider struct {
	mock.Mock
}

func (m *MockCatalogProvider) NewDialer(opts daapfs.CatalogOptions) (daapfs.Dialer, error) {
	args := m.Called(opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(daapfs.Dialer), args.Error(1)
}

var _ daapfs.CatalogProvider = (*MockCatalogProvider)(nil)

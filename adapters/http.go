package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/internal/util"
)

var ErrUnexpectedStatus = errors.New("unexpected catalog response status")

// HTTPClient is the subset of *http.Client the catalog needs
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProvider builds dialers for catalogs serving JSON over HTTP:
//
//	GET /login                          -> {"session_id": "..."}
//	GET /tracks?session-id=ID           -> [{"id", "artist", "album", "title", "format", "size"}]
//	GET /tracks/{id}.{format}?session-id=ID with Range: bytes=a-b
//	GET /logout?session-id=ID
type HTTPProvider struct {
	client HTTPClient
}

// NewHTTPProvider returns a provider using client, or http.DefaultClient if nil
func NewHTTPProvider(client HTTPClient) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{client: client}
}

func RegisterHTTP(r *Registry) {
	r.Register(HTTPCatalogType, NewHTTPProvider(nil))
}

func (p *HTTPProvider) NewDialer(opts daapfs.CatalogOptions) (daapfs.Dialer, error) {
	return &HTTPDialer{client: p.client, password: opts.Password}, nil
}

// HTTPDialer implements [daapfs.Dialer] for HTTP catalogs
type HTTPDialer struct {
	client   HTTPClient
	password string
}

// Dial logs into the catalog at addr
func (d *HTTPDialer) Dial(ctx context.Context, addr netip.AddrPort) (daapfs.Session, error) {
	logger := util.GetLogger("HTTPDialer.Dial")

	base := "http://" + addr.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/login", nil)
	if err != nil {
		return nil, err
	}
	if d.password != "" {
		req.SetBasicAuth("daapfs", d.password)
	}

	var login struct {
		SessionID string `json:"session_id"`
	}
	if err := doJSON(d.client, req, &login); err != nil {
		return nil, fmt.Errorf("login to %s: %w", addr, err)
	}
	logger.Debug().Str("addr", addr.String()).Msg("Logged in")
	return &httpSession{client: d.client, base: base, id: login.SessionID}, nil
}

func doJSON(client HTTPClient, req *http.Request, v any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %s: %d", ErrUnexpectedStatus, req.Method, req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", req.URL.Path, err)
	}
	return nil
}

type httpSession struct {
	client HTTPClient
	base   string
	id     string
}

func (s *httpSession) url(p string) string {
	q := url.Values{}
	q.Set("session-id", s.id)
	return s.base + p + "?" + q.Encode()
}

type trackDTO struct {
	ID     int64  `json:"id"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Title  string `json:"title"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

func (s *httpSession) Tracks(ctx context.Context) ([]daapfs.Track, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url("/tracks"), nil)
	if err != nil {
		return nil, err
	}

	var dtos []trackDTO
	if err := doJSON(s.client, req, &dtos); err != nil {
		return nil, err
	}
	tracks := make([]daapfs.Track, 0, len(dtos))
	for _, dto := range dtos {
		tracks = append(tracks, &httpTrack{session: s, dto: dto})
	}
	return tracks, nil
}

// Close logs out of the session
func (s *httpSession) Close(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url("/logout"), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: logout: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

// httpTrack implements [daapfs.Track] for a track listed by an HTTP catalog
type httpTrack struct {
	session *httpSession
	dto     trackDTO
}

func (t *httpTrack) Artist() string { return t.dto.Artist }
func (t *httpTrack) Album() string  { return t.dto.Album }
func (t *httpTrack) Title() string  { return t.dto.Title }
func (t *httpTrack) Format() string { return t.dto.Format }
func (t *httpTrack) Size() int64    { return t.dto.Size }

type readCloser struct {
	io.Reader
	io.Closer
}

// ReadRange requests bytes [start, end] of the track. Catalogs ignoring the
// Range header are handled by skipping the leading bytes of the full body.
func (t *httpTrack) ReadRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	p := fmt.Sprintf("/tracks/%d", t.dto.ID)
	if t.dto.Format != "" {
		p += "." + url.PathEscape(t.dto.Format)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.session.url(p), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	resp, err := t.session.client.Do(req)
	if err != nil {
		return nil, err
	}

	length := end - start + 1
	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		if _, err := io.CopyN(io.Discard, resp.Body, start); err != nil {
			resp.Body.Close()
			if errors.Is(err, io.EOF) {
				return io.NopCloser(http.NoBody), nil
			}
			return nil, err
		}
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: range %d-%d of track %d: %d", ErrUnexpectedStatus, start, end, t.dto.ID, resp.StatusCode)
	}
	return readCloser{Reader: io.LimitReader(resp.Body, length), Closer: resp.Body}, nil
}

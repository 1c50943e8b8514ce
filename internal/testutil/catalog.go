// Package testutil provides an in-memory HTTP music catalog for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type CatalogTrack struct {
	ID     int64
	Artist string
	Album  string
	Title  string
	Format string
	Data   []byte
}

// Catalog serves the JSON catalog protocol understood by the http adapter
type Catalog struct {
	Password string // required basic auth password; empty for none
	NoRanges bool   // ignore Range headers and always send the whole file
	Tracks   []CatalogTrack

	mu       sync.Mutex
	sessions map[string]bool
	logouts  int
	ranges   []string
}

func (c *Catalog) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", c.handleLogin)
	mux.HandleFunc("GET /logout", c.handleLogout)
	mux.HandleFunc("GET /tracks", c.handleTracks)
	mux.HandleFunc("GET /tracks/{file}", c.handleTrack)
	return mux
}

// Logouts counts successful logouts
func (c *Catalog) Logouts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logouts
}

// Ranges returns every Range header received on track reads
func (c *Catalog) Ranges() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ranges...)
}

func (c *Catalog) handleLogin(w http.ResponseWriter, r *http.Request) {
	if c.Password != "" {
		if _, pass, ok := r.BasicAuth(); !ok || pass != c.Password {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	id := uuid.NewString()
	c.mu.Lock()
	if c.sessions == nil {
		c.sessions = make(map[string]bool)
	}
	c.sessions[id] = true
	c.mu.Unlock()

	writeJSON(w, map[string]string{"session_id": id})
}

func (c *Catalog) authorized(w http.ResponseWriter, r *http.Request) bool {
	c.mu.Lock()
	ok := c.sessions[r.URL.Query().Get("session-id")]
	c.mu.Unlock()
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
	}
	return ok
}

func (c *Catalog) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !c.authorized(w, r) {
		return
	}
	c.mu.Lock()
	delete(c.sessions, r.URL.Query().Get("session-id"))
	c.logouts++
	c.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (c *Catalog) handleTracks(w http.ResponseWriter, r *http.Request) {
	if !c.authorized(w, r) {
		return
	}
	type dto struct {
		ID     int64  `json:"id"`
		Artist string `json:"artist"`
		Album  string `json:"album"`
		Title  string `json:"title"`
		Format string `json:"format"`
		Size   int    `json:"size"`
	}
	out := make([]dto, 0, len(c.Tracks))
	for _, t := range c.Tracks {
		out = append(out, dto{t.ID, t.Artist, t.Album, t.Title, t.Format, len(t.Data)})
	}
	writeJSON(w, out)
}

func (c *Catalog) handleTrack(w http.ResponseWriter, r *http.Request) {
	if !c.authorized(w, r) {
		return
	}
	idStr, _, _ := strings.Cut(r.PathValue("file"), ".")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	var track *CatalogTrack
	for i := range c.Tracks {
		if c.Tracks[i].ID == id {
			track = &c.Tracks[i]
		}
	}
	if track == nil {
		http.NotFound(w, r)
		return
	}

	rng := r.Header.Get("Range")
	c.mu.Lock()
	c.ranges = append(c.ranges, rng)
	c.mu.Unlock()

	start, end, ok := parseRange(rng, len(track.Data))
	if c.NoRanges || !ok {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(track.Data)
		return
	}
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(track.Data)))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(track.Data[start : end+1])
}

// parseRange handles the single "bytes=a-b" form
func parseRange(h string, size int) (start, end int, ok bool) {
	spec, found := strings.CutPrefix(h, "bytes=")
	if !found {
		return 0, 0, false
	}
	a, b, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(a)
	end, err2 := strconv.Atoi(b)
	if err1 != nil || err2 != nil || start > end || start >= size {
		return 0, 0, false
	}
	return start, min(end, size-1), true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

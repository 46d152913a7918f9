package shellcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TriggerSyncMessage is the opaque message a page posts to request a sync.
const TriggerSyncMessage = "trigger-sync"

// SyncBroadcast is the notification type rebroadcast to every subscriber.
const SyncBroadcast = "sync-analytics"

// MessagePath accepts trigger-sync posts from the UI.
const MessagePath = "/sw/message"

// Proxy serves the UI shell with offline fallbacks:
//
//   - backend-prefixed paths are network-first and never cached,
//   - navigations always get the cached shell document when present,
//   - other same-origin GETs are cache-first with opportunistic fill,
//   - total failure falls back to the cached shell as a last resort.
type Proxy struct {
	cache         *Cache
	upstream      *url.URL
	backend       *url.URL
	backendPrefix string
	shellPath     string
	precache      []string
	client        *http.Client
	log           zerolog.Logger

	mu   sync.Mutex
	subs []func(kind string)
}

// Config wires a Proxy.
type Config struct {
	Upstream      string   // shell static origin, e.g. http://127.0.0.1:5173
	Backend       string   // backend origin, proxied network-first
	BackendPrefix string   // path prefix routed to the backend, e.g. /api/
	ShellPath     string   // app-shell document, e.g. /index.html
	Precache      []string // assets fetched during install
	Timeout       time.Duration
}

// NewProxy builds the proxy. Install (Precache) and activate (EvictOld on
// the cache) are explicit calls so the agent controls the lifecycle.
func NewProxy(cache *Cache, cfg Config, log zerolog.Logger) (*Proxy, error) {
	up, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	var backend *url.URL
	if cfg.Backend != "" {
		backend, err = url.Parse(cfg.Backend)
		if err != nil {
			return nil, fmt.Errorf("parse backend url: %w", err)
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shell := cfg.ShellPath
	if shell == "" {
		shell = "/index.html"
	}
	prefix := cfg.BackendPrefix
	if prefix == "" {
		prefix = "/api/"
	}
	return &Proxy{
		cache:         cache,
		upstream:      up,
		backend:       backend,
		backendPrefix: prefix,
		shellPath:     shell,
		precache:      cfg.Precache,
		client:        &http.Client{Timeout: timeout},
		log:           log,
	}, nil
}

// Subscribe registers fn to receive sync broadcasts. Every subscriber is
// notified on each trigger, mirroring a worker messaging all open tabs.
func (p *Proxy) Subscribe(fn func(kind string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

func (p *Proxy) broadcast(kind string) {
	p.mu.Lock()
	subs := make([]func(string), len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()
	for _, fn := range subs {
		fn(kind)
	}
}

// Precache is the install step: fetch the shell document and the fixed
// asset list into the live cache generation. A failed install reports the
// error so the caller can retry.
func (p *Proxy) Precache(ctx context.Context) error {
	assets := append([]string{p.shellPath}, p.precache...)
	for _, path := range assets {
		resp, err := p.fetch(ctx, http.MethodGet, p.upstream, path, nil)
		if err != nil {
			return fmt.Errorf("precache %s: %w", path, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("precache %s: %w", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("precache %s: status %d", path, resp.StatusCode)
		}
		p.cache.Put(path, CachedResponse{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body})
	}
	return nil
}

// Activate is the activate step: evict every stale cache generation.
func (p *Proxy) Activate() {
	p.cache.EvictOld()
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == MessagePath {
		p.handleMessage(w, r)
		return
	}
	if p.backend != nil && strings.HasPrefix(r.URL.Path, p.backendPrefix) {
		p.serveNetworkFirst(w, r)
		return
	}
	if isNavigation(r) {
		p.serveShell(w, r)
		return
	}
	p.serveCacheFirst(w, r)
}

func (p *Proxy) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil || strings.TrimSpace(string(body)) != TriggerSyncMessage {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	p.broadcast(SyncBroadcast)
	w.WriteHeader(http.StatusNoContent)
}

// serveNetworkFirst relays backend requests without caching them, falling
// back to any cached copy only when the network is down.
func (p *Proxy) serveNetworkFirst(w http.ResponseWriter, r *http.Request) {
	resp, err := p.forward(r, p.backend)
	if err != nil {
		if cached := p.cache.Match(cacheKey(r)); cached != nil {
			writeCached(w, cached)
			return
		}
		http.Error(w, "backend unreachable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	relay(w, resp)
}

// serveShell answers navigations with the cached app-shell document, going
// to the network only when nothing is cached yet.
func (p *Proxy) serveShell(w http.ResponseWriter, r *http.Request) {
	if cached := p.cache.Match(p.shellPath); cached != nil {
		writeCached(w, cached)
		return
	}
	resp, err := p.fetch(r.Context(), http.MethodGet, p.upstream, p.shellPath, nil)
	if err != nil {
		http.Error(w, "shell unavailable", http.StatusServiceUnavailable)
		return
	}
	defer resp.Body.Close()
	relay(w, resp)
}

// serveCacheFirst answers same-origin asset requests from the cache,
// fetching and opportunistically storing on a miss. Total failure falls
// back to the cached shell.
func (p *Proxy) serveCacheFirst(w http.ResponseWriter, r *http.Request) {
	key := cacheKey(r)
	if r.Method == http.MethodGet {
		if cached := p.cache.Match(key); cached != nil {
			writeCached(w, cached)
			return
		}
	}
	resp, err := p.forward(r, p.upstream)
	if err != nil {
		if shell := p.cache.Match(p.shellPath); shell != nil {
			writeCached(w, shell)
			return
		}
		http.Error(w, "offline", http.StatusServiceUnavailable)
		return
	}
	defer resp.Body.Close()
	if r.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			http.Error(w, "upstream read failed", http.StatusBadGateway)
			return
		}
		copyHeader(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		w.Write(body)
		// Store the copy after the response is on the wire; a slow or
		// failing cache write never delays the page.
		go p.cache.Put(key, CachedResponse{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body})
		return
	}
	relay(w, resp)
}

func (p *Proxy) forward(r *http.Request, origin *url.URL) (*http.Response, error) {
	target := *r.URL
	target.Scheme = origin.Scheme
	target.Host = origin.Host
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, r.Header)
	return p.client.Do(req)
}

func (p *Proxy) fetch(ctx context.Context, method string, origin *url.URL, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, origin.ResolveReference(&url.URL{Path: path}).String(), body)
	if err != nil {
		return nil, err
	}
	return p.client.Do(req)
}

// isNavigation reports whether r is a full-page load: a GET whose Accept
// header asks for an HTML document.
func isNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func cacheKey(r *http.Request) string {
	return r.URL.RequestURI()
}

func writeCached(w http.ResponseWriter, cached *CachedResponse) {
	copyHeader(w.Header(), cached.Header)
	w.WriteHeader(cached.Status)
	w.Write(cached.Body)
}

func relay(w http.ResponseWriter, resp *http.Response) {
	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func copyHeader(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

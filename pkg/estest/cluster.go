package estest

import (
	"net"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
)

// Request is a request received by the fake cluster.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Body     []byte
	OpaqueID string
}

type document struct {
	id      string
	source  map[string]any
	version int64
}

type indexData struct {
	docs  map[string]*document
	order []string
}

type cursor struct {
	index string
	hits  []hit
	size  int
}

// Cluster is an in-memory stand-in for a single-node search cluster. It
// implements the subset of the REST API used by the esclient package: single
// document CRUD, bulk, search with scroll, count, delete/update by query and
// analyze. Query support is limited to match_all, term, terms, match, ids,
// exists and bool combinations of those.
type Cluster struct {
	srv *httptest.Server

	mu       sync.Mutex
	indices  map[string]*indexData
	requests []Request
	cursors  map[string]*cursor
	rejected map[string]string
	failWith int
	seq      int
}

// Option configures a Cluster.
type Option func(*Cluster)

// WithDocument seeds the cluster with a document.
func WithDocument(index, id string, source map[string]any) Option {
	return func(c *Cluster) {
		c.put(index, id, source)
	}
}

// NewCluster starts a fake cluster and registers its shutdown with t.Cleanup.
func NewCluster(t testing.TB, opts ...Option) *Cluster {
	t.Helper()

	c := &Cluster{
		indices:  make(map[string]*indexData),
		cursors:  make(map[string]*cursor),
		rejected: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.srv = httptest.NewServer(c.router())
	t.Cleanup(c.srv.Close)
	return c
}

// URL returns the base URL, e.g. http://127.0.0.1:54321.
func (c *Cluster) URL() string {
	return c.srv.URL
}

// Node returns the host:port of the fake node, suitable for a nodes string.
func (c *Cluster) Node() string {
	u, _ := url.Parse(c.srv.URL)
	return u.Host
}

// Port returns the listening port.
func (c *Cluster) Port() int {
	_, p, _ := net.SplitHostPort(c.Node())
	port, _ := strconv.Atoi(p)
	return port
}

// Close stops the server; later requests fail at the transport level.
func (c *Cluster) Close() {
	c.srv.Close()
}

// Put stores a document as if it had been indexed.
func (c *Cluster) Put(index, id string, source map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(index, id, source)
}

// Doc returns a copy of a stored document source.
func (c *Cluster) Doc(index, id string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.indices[index]
	if !ok {
		return nil, false
	}
	d, ok := idx.docs[id]
	if !ok {
		return nil, false
	}
	return cloneSource(d.source), true
}

// DocCount returns the number of documents stored in index.
func (c *Cluster) DocCount(index string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.indices[index]; ok {
		return len(idx.docs)
	}
	return 0
}

// Reject makes every write of document id fail with a mapper_parsing_exception
// carrying reason. Applies to bulk items, update by query and delete by query.
func (c *Cluster) Reject(id, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected[id] = reason
}

// FailWith makes every request except the root info request answer with
// status. Zero restores normal behaviour.
func (c *Cluster) FailWith(status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = status
}

// Requests returns every request received so far, in order.
func (c *Cluster) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Request(nil), c.requests...)
}

// RequestsTo returns the received requests with the given method and path.
func (c *Cluster) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range c.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets the recorded requests.
func (c *Cluster) ResetRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = nil
}

// OpenCursors returns the number of live scroll cursors.
func (c *Cluster) OpenCursors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cursors)
}

// put must be called with mu held (or before the server starts).
func (c *Cluster) put(index, id string, source map[string]any) *document {
	idx, ok := c.indices[index]
	if !ok {
		idx = &indexData{docs: make(map[string]*document)}
		c.indices[index] = idx
	}
	if id == "" {
		c.seq++
		id = "auto-" + strconv.Itoa(c.seq)
	}
	d, exists := idx.docs[id]
	if !exists {
		d = &document{id: id}
		idx.docs[id] = d
		idx.order = append(idx.order, id)
	}
	d.source = cloneSource(source)
	d.version++
	return d
}

// remove must be called with mu held.
func (c *Cluster) remove(index, id string) bool {
	idx, ok := c.indices[index]
	if !ok {
		return false
	}
	if _, ok := idx.docs[id]; !ok {
		return false
	}
	delete(idx.docs, id)
	for i, oid := range idx.order {
		if oid == id {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			break
		}
	}
	return true
}

func cloneSource(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

package cluster

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/dmitrymomot/searchkit/pkg/logger"
)

// Entry is the registry record for one configured cluster.
// An entry whose transport could not be built is kept as a degraded entry:
// it can be looked up, but every request against it fails with
// ErrClusterUnavailable.
type Entry struct {
	Name    string
	Engine  Engine
	Hosts   []Host
	Skipped []string

	transport esapi.Transport
	err       error
}

// Usable reports whether the entry has a client handle.
func (e *Entry) Usable() bool {
	return e.err == nil && e.transport != nil
}

// Err returns the reason the entry is degraded, or nil.
func (e *Entry) Err() error {
	return e.err
}

// Transport returns the client handle of a usable entry.
func (e *Entry) Transport() (esapi.Transport, error) {
	if !e.Usable() {
		return nil, errors.Join(ErrClusterUnavailable, e.err)
	}
	return e.transport, nil
}

// Registry maps cluster names to client handles. It is built once and is
// read-only afterwards, so it is safe for concurrent use without locking.
type Registry struct {
	entries map[string]*Entry
	log     *slog.Logger
	rt      http.RoundTripper
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used while building the registry.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithHTTPTransport sets the RoundTripper shared by every cluster client
// (TLS settings, proxies, test servers).
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(r *Registry) {
		r.rt = rt
	}
}

// NewRegistry builds one client handle per configured cluster.
// It never fails: malformed node entries are skipped and logged, and clusters
// without a usable handle are stored as degraded entries. When two configs
// share a name the later one wins.
func NewRegistry(cfgs []Config, opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*Entry, len(cfgs)),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	log := r.log.With(logger.Component("cluster_registry"))

	for _, cfg := range cfgs {
		name := strings.TrimSpace(cfg.Name)
		hosts, skipped := ParseNodes(cfg.Nodes)

		for _, s := range skipped {
			log.Warn("skipping malformed node entry",
				logger.Cluster(name),
				slog.String("entry", s),
			)
		}
		if _, dup := r.entries[name]; dup {
			log.Warn("duplicate cluster name, replacing previous entry", logger.Cluster(name))
		}

		entry := &Entry{
			Name:    name,
			Engine:  cfg.engine(),
			Hosts:   hosts,
			Skipped: skipped,
		}

		if len(hosts) == 0 {
			entry.err = ErrNoHosts
		} else {
			entry.transport, entry.err = newTransport(cfg, hosts, r.rt)
		}
		r.entries[name] = entry

		if entry.err != nil {
			log.Error("cluster client unavailable",
				logger.Cluster(name),
				slog.String("nodes", cfg.Nodes),
				logger.Error(entry.err),
			)
			continue
		}
		log.Info("cluster client initialized",
			logger.Cluster(name),
			slog.String("engine", string(entry.Engine)),
			logger.Hosts(hostStrings(hosts)),
		)
	}

	return r
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Transport returns the client handle for name.
func (r *Registry) Transport(name string) (esapi.Transport, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, ErrUnknownCluster
	}
	return e.Transport()
}

// Names returns every registered cluster name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Usable returns the sorted names of clusters that have a client handle.
func (r *Registry) Usable() []string {
	names := make([]string, 0, len(r.entries))
	for name, e := range r.entries {
		if e.Usable() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

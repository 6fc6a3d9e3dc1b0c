package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"golang.org/x/sync/errgroup"
)

// Healthcheck sends an info request to the cluster and fails when the
// transport errors or the node answers with a non-2xx status.
func (e *Entry) Healthcheck(ctx context.Context) error {
	transport, err := e.Transport()
	if err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}

	res, err := esapi.InfoRequest{}.Do(ctx, transport)
	if err != nil {
		return errors.Join(ErrHealthcheckFailed, fmt.Errorf("cluster %q: %w", e.Name, err))
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Join(ErrHealthcheckFailed, fmt.Errorf("cluster %q: %s", e.Name, res.Status()))
	}
	return nil
}

// Healthcheck checks every usable cluster concurrently and joins the failures.
// Degraded entries are not contacted; use Entry.Err for their cause.
// The signature fits liveness/readiness probe helpers.
func (r *Registry) Healthcheck(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)

	for _, name := range r.Usable() {
		entry := r.entries[name]
		g.Go(func() error {
			if err := entry.Healthcheck(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Status is the health of one registered cluster.
type Status struct {
	Name    string   `json:"name"`
	Engine  Engine   `json:"engine"`
	Hosts   []string `json:"hosts"`
	Skipped []string `json:"skipped,omitempty"`
	Healthy bool     `json:"healthy"`
	Error   string   `json:"error,omitempty"`
}

// Report checks every registered cluster concurrently, degraded entries
// included, and returns one Status per cluster sorted by name.
func (r *Registry) Report(ctx context.Context) []Status {
	names := r.Names()
	out := make([]Status, len(names))

	var g errgroup.Group
	for i, name := range names {
		entry := r.entries[name]
		out[i] = Status{
			Name:    name,
			Engine:  entry.Engine,
			Hosts:   hostStrings(entry.Hosts),
			Skipped: entry.Skipped,
		}
		g.Go(func() error {
			if err := entry.Healthcheck(ctx); err != nil {
				out[i].Error = err.Error()
				return nil
			}
			out[i].Healthy = true
			return nil
		})
	}
	_ = g.Wait()
	return out
}

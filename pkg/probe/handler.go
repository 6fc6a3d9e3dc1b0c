package probe

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/searchkit/pkg/cluster"
	"github.com/dmitrymomot/searchkit/pkg/logger"
	"github.com/dmitrymomot/searchkit/pkg/opaqueid"
)

// Reporter returns the health of every configured cluster.
// *cluster.Registry implements it.
type Reporter interface {
	Report(ctx context.Context) []cluster.Status
}

// Handler returns the probe routes:
//
//   - GET /livez answers 200 "ALIVE" without contacting any cluster.
//   - GET /readyz answers 200 "READY" when every cluster is healthy and
//     503 "NOT_READY" otherwise.
//   - GET /clusters answers the per-cluster report as JSON.
func (s *Server) Handler(reporter Reporter) http.Handler {
	r := chi.NewRouter()
	r.Use(opaqueid.Middleware)

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ready := true
		for _, st := range s.report(r.Context(), reporter) {
			if !st.Healthy {
				ready = false
				s.cfg.logger.ErrorContext(r.Context(), "readiness check failed",
					logger.Cluster(st.Name),
					logger.Hosts(st.Hosts),
					logger.Error(errorString(st.Error)),
				)
			}
		}
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})

	r.Get("/clusters", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(s.report(r.Context(), reporter))
	})

	return r
}

func (s *Server) report(ctx context.Context, reporter Reporter) []cluster.Status {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.checkTimeout)
	defer cancel()
	return reporter.Report(ctx)
}

type errorString string

func (e errorString) Error() string { return string(e) }

// Package probe serves liveness and readiness endpoints for the configured
// search clusters.
//
// Server wraps net/http with graceful shutdown on context cancellation or
// SIGINT/SIGTERM. Handler mounts the probe routes on a chi router:
//
//	srv := probe.New(probe.WithAddr(":8081"), probe.WithLogger(log))
//	if err := srv.Run(ctx, srv.Handler(registry)); err != nil {
//		log.Error("probe server failed", logger.Error(err))
//	}
//
// /readyz contacts every cluster on each request, bounded by the check
// timeout (PROBE_CHECK_TIMEOUT, 10s by default).
package probe

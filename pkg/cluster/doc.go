// Package cluster keeps the named search cluster clients of a process.
//
// Each cluster is configured with a comma-separated list of host:port nodes
// and an engine (elasticsearch or opensearch). NewRegistry parses the node
// lists, skips malformed entries, and builds one client per cluster. A cluster
// whose client cannot be built stays in the registry as a degraded entry, so
// callers get a descriptive error instead of a missing handle:
//
//	settings, err := cluster.LoadSettings()
//	if err != nil {
//		return err
//	}
//	registry := cluster.NewRegistry(settings.Clusters, cluster.WithLogger(log))
//	if err := registry.Healthcheck(ctx); err != nil {
//		log.Warn("search cluster unhealthy", logger.Error(err))
//	}
//
// Clients are returned as esapi.Transport values, which both the
// Elasticsearch and the OpenSearch client implement.
package cluster

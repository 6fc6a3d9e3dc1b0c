package cluster

import "errors"

var (
	// ErrUnknownCluster is returned when a cluster name was never configured.
	ErrUnknownCluster = errors.New("cluster is not configured")

	// ErrClusterUnavailable is returned when a configured cluster has no usable
	// client handle. It is joined with the reason stored on the entry.
	ErrClusterUnavailable = errors.New("cluster client is unavailable")

	// ErrNoHosts indicates that the nodes string did not contain a single valid host:port pair.
	ErrNoHosts = errors.New("no valid host:port pair in nodes")

	// ErrUnknownEngine indicates an engine other than elasticsearch or opensearch.
	ErrUnknownEngine = errors.New("unknown search engine")

	// ErrConnectionFailed indicates that the underlying client library refused the configuration.
	ErrConnectionFailed = errors.New("search cluster client could not be created")

	// ErrHealthcheckFailed indicates that a cluster did not answer the info request.
	ErrHealthcheckFailed = errors.New("search cluster healthcheck failed")

	// ErrNoClusters is returned by LoadSettings when neither the file nor the
	// environment defines a cluster.
	ErrNoClusters = errors.New("no search clusters configured")
)

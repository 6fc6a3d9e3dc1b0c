// Package esclient runs document operations against named search clusters.
//
// A Client resolves the cluster of every call through a Resolver (normally a
// *cluster.Registry) and issues one request per operation with the esapi
// request types of go-elasticsearch, so it works with both Elasticsearch and
// OpenSearch transports.
//
//	registry := cluster.NewRegistry(settings.Clusters)
//	client := esclient.New(registry, esclient.WithLogger(log))
//
//	info := esclient.IndexInfo{ClusterName: "c1", IndexName: "books"}
//	id, err := client.Insert(ctx, info, esclient.SourceData{
//		DocID: "d1",
//		Data:  map[string]any{"title": "Dune"},
//	})
//
// # Errors
//
// Operations return errors instead of sentinel values. Use errors.Is with
// ErrInvalidRequest, ErrNotFound, ErrPartialFailure, ErrTransport and
// ErrUnexpectedResponse, or the cluster package sentinels for unknown and
// degraded clusters. Bulk and by-query operations report rejected items
// through *PartialFailureError, and non-2xx answers carry a *ResponseError.
// Classify folds any of these into an Outcome.
//
// Every failure is logged once by the client. Each call is tagged with an
// X-Opaque-Id taken from the context (see package opaqueid) or generated.
package esclient

// Package opaqueid tags outgoing search requests with a correlation id.
//
// Every façade operation runs under a context that carries an id (Ensure
// creates a UUIDv4 when the caller did not supply one). The id is sent to the
// cluster in the X-Opaque-Id header, which Elasticsearch and OpenSearch copy
// into their slow logs and task listings, and is attached to the façade's own
// log records through LoggerExtractor. Reusing a caller supplied id lets one
// trace a user action from application logs to cluster logs.
//
// Middleware mimics the server side: it echoes the header and stores the id
// in the request context. The fake cluster in package estest uses it.
package opaqueid

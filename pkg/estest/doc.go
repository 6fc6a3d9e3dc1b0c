// Package estest provides an in-memory fake search cluster for tests.
//
// The fake speaks enough of the Elasticsearch REST API for the esclient and
// cluster packages to be exercised end to end without a real node: it keeps
// documents per index, records every request it receives, and lets tests
// inject failures.
//
//	c := estest.NewCluster(t, estest.WithDocument("books", "1", map[string]any{"title": "Dune"}))
//	registry := cluster.NewRegistry([]cluster.Config{{Name: "main", Nodes: c.Node()}})
//
// Analysis is backed by bleve analyzers. Analyzers provided by plugins, such
// as ik_smart, are answered with the standard analyzer.
package estest

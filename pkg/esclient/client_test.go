package esclient_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/searchkit/pkg/cluster"
	"github.com/dmitrymomot/searchkit/pkg/esclient"
	"github.com/dmitrymomot/searchkit/pkg/estest"
	"github.com/dmitrymomot/searchkit/pkg/logger"
	"github.com/dmitrymomot/searchkit/pkg/opaqueid"
)

var books = esclient.IndexInfo{ClusterName: "c1", IndexName: "books"}

type env struct {
	fake   *estest.Cluster
	client *esclient.Client
	logs   *bytes.Buffer
}

func setup(t *testing.T, opts ...estest.Option) *env {
	t.Helper()
	return setupWith(t, cluster.EngineElasticsearch, nil, opts...)
}

func setupWith(t *testing.T, engine cluster.Engine, clientOpts []esclient.Option, opts ...estest.Option) *env {
	t.Helper()

	fake := estest.NewCluster(t, opts...)
	registry := cluster.NewRegistry([]cluster.Config{
		{Name: "c1", Nodes: fake.Node(), Engine: engine, MaxRetries: 1},
		{Name: "degraded", Nodes: "bad-entry"},
	}, cluster.WithLogger(logger.Discard()))

	logs := &bytes.Buffer{}
	log := logger.New(
		logger.WithOutput(logs),
		logger.WithLevel(slog.LevelDebug),
		logger.WithContextExtractors(opaqueid.LoggerExtractor()),
	)
	client := esclient.New(registry, append([]esclient.Option{esclient.WithLogger(log)}, clientOpts...)...)
	return &env{fake: fake, client: client, logs: logs}
}

// entries returns the decoded log records written so far.
func (e *env) entries(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(e.logs.Bytes()))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestClient_InvalidIndexInfo(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()

	for _, info := range []esclient.IndexInfo{
		{ClusterName: "", IndexName: "books"},
		{ClusterName: "c1", IndexName: " "},
	} {
		_, err := e.client.Insert(ctx, info, esclient.SourceData{DocID: "1", Data: map[string]any{}})
		assert.ErrorIs(t, err, esclient.ErrInvalidRequest)
		assert.Equal(t, esclient.OutcomeInvalid, esclient.Classify(err))
	}
	assert.Empty(t, e.fake.Requests())
}

func TestClient_UnknownAndDegradedClusters(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()

	_, err := e.client.ExistsDoc(ctx, esclient.IndexInfo{ClusterName: "nope", IndexName: "books"}, "1")
	assert.ErrorIs(t, err, cluster.ErrUnknownCluster)
	assert.Equal(t, esclient.OutcomeInvalid, esclient.Classify(err))

	_, err = e.client.ExistsDoc(ctx, esclient.IndexInfo{ClusterName: "degraded", IndexName: "books"}, "1")
	assert.ErrorIs(t, err, cluster.ErrClusterUnavailable)
	assert.ErrorIs(t, err, cluster.ErrNoHosts)
	assert.Equal(t, esclient.OutcomeTransportError, esclient.Classify(err))

	assert.Empty(t, e.fake.Requests())
}

func TestClient_TransportFailure(t *testing.T) {
	t.Parallel()

	e := setup(t)
	e.fake.Close()

	_, err := e.client.GetDoc(context.Background(), books, "1")
	assert.ErrorIs(t, err, esclient.ErrTransport)
	assert.Equal(t, esclient.OutcomeTransportError, esclient.Classify(err))
}

func TestClient_ErrorResponse(t *testing.T) {
	t.Parallel()

	e := setup(t)
	e.fake.FailWith(http.StatusInternalServerError)

	err := e.client.Update(context.Background(), books, esclient.SourceData{DocID: "1", Data: map[string]any{"a": 1}})
	require.ErrorIs(t, err, esclient.ErrUnexpectedResponse)

	var re *esclient.ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
	assert.Equal(t, "fake_failure_exception", re.Type)
	assert.Equal(t, esclient.OutcomeTransportError, esclient.Classify(err))
}

func TestClient_OpaqueID(t *testing.T) {
	t.Parallel()

	t.Run("taken from context", func(t *testing.T) {
		t.Parallel()

		e := setup(t)
		ctx := opaqueid.WithContext(context.Background(), "job-42")

		_, err := e.client.ExistsDoc(ctx, books, "1")
		require.NoError(t, err)

		reqs := e.fake.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "job-42", reqs[0].OpaqueID)
	})

	t.Run("generated per call", func(t *testing.T) {
		t.Parallel()

		e := setup(t)
		ctx := context.Background()

		_, err := e.client.ExistsDoc(ctx, books, "1")
		require.NoError(t, err)
		_, err = e.client.ExistsDoc(ctx, books, "2")
		require.NoError(t, err)

		reqs := e.fake.Requests()
		require.Len(t, reqs, 2)
		assert.True(t, opaqueid.IsValid(reqs[0].OpaqueID))
		assert.True(t, opaqueid.IsValid(reqs[1].OpaqueID))
		assert.NotEqual(t, reqs[0].OpaqueID, reqs[1].OpaqueID)
	})
}

func TestClient_LogsFailures(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := opaqueid.WithContext(context.Background(), "req-1")

	err := e.client.DeleteDoc(ctx, books, "missing")
	require.ErrorIs(t, err, esclient.ErrNotFound)

	var failure map[string]any
	for _, entry := range e.entries(t) {
		if entry["level"] == "ERROR" {
			failure = entry
		}
	}
	require.NotNil(t, failure)
	assert.Equal(t, "delete_doc failed", failure["msg"])
	assert.Equal(t, "delete_doc", failure["op"])
	assert.Equal(t, "c1", failure["cluster"])
	assert.Equal(t, "books", failure["index"])
	assert.Equal(t, "missing", failure["doc_id"])
	assert.Equal(t, "req-1", failure["opaque_id"])
	assert.Equal(t, "esclient", failure["component"])
}

func TestClient_OpenSearchEngine(t *testing.T) {
	t.Parallel()

	e := setupWith(t, cluster.EngineOpenSearch, nil)
	ctx := context.Background()

	id, err := e.client.Insert(ctx, books, esclient.SourceData{DocID: "d1", Data: map[string]any{"title": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "d1", id)

	doc, err := e.client.GetDoc(ctx, books, "d1")
	require.NoError(t, err)
	assert.Equal(t, "x", doc["title"])
}

func TestClient_Refresh(t *testing.T) {
	t.Parallel()

	e := setupWith(t, cluster.EngineElasticsearch, []esclient.Option{esclient.WithRefresh("wait_for")})

	_, err := e.client.Insert(context.Background(), books, esclient.SourceData{DocID: "d1", Data: map[string]any{}})
	require.NoError(t, err)

	reqs := e.fake.RequestsTo(http.MethodPut, "/books/_doc/d1")
	require.Len(t, reqs, 1)
	assert.Equal(t, "wait_for", reqs[0].Query.Get("refresh"))
}

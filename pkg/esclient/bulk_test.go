package esclient_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/searchkit/pkg/esclient"
	"github.com/dmitrymomot/searchkit/pkg/estest"
)

func bulkLines(t *testing.T, fake *estest.Cluster) int {
	t.Helper()
	reqs := fake.RequestsTo(http.MethodPost, "/books/_bulk")
	require.Len(t, reqs, 1)
	return len(bytes.Split(bytes.TrimSpace(reqs[0].Body), []byte("\n")))
}

func TestClient_BatchInsert(t *testing.T) {
	t.Parallel()

	t.Run("blank ids are skipped", func(t *testing.T) {
		t.Parallel()

		e := setup(t)
		summary, err := e.client.BatchInsert(context.Background(), books, []esclient.SourceData{
			{DocID: "a", Data: map[string]any{"title": "A"}},
			{DocID: "", Data: map[string]any{"title": "no id"}},
			{DocID: "b", Data: map[string]any{"title": "B"}},
		})
		require.NoError(t, err)
		assert.Equal(t, &esclient.BulkSummary{Submitted: 2, Skipped: 1, Succeeded: 2, Took: summary.Took}, summary)

		assert.Equal(t, 4, bulkLines(t, e.fake))
		assert.Equal(t, 2, e.fake.DocCount("books"))
		doc, ok := e.fake.Doc("books", "b")
		require.True(t, ok)
		assert.Equal(t, "B", doc["title"])
	})

	t.Run("all blank ids send nothing", func(t *testing.T) {
		t.Parallel()

		e := setup(t)
		summary, err := e.client.BatchInsert(context.Background(), books, []esclient.SourceData{
			{Data: map[string]any{"title": "A"}},
			{Data: map[string]any{"title": "B"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Submitted)
		assert.Equal(t, 2, summary.Skipped)
		assert.Empty(t, e.fake.Requests())
	})

	t.Run("empty input sends nothing", func(t *testing.T) {
		t.Parallel()

		e := setup(t)
		summary, err := e.client.BatchInsert(context.Background(), books, nil)
		require.NoError(t, err)
		assert.Equal(t, &esclient.BulkSummary{}, summary)
		assert.Empty(t, e.fake.Requests())
	})

	t.Run("rejected items are reported", func(t *testing.T) {
		t.Parallel()

		e := setup(t)
		e.fake.Reject("b", "failed to parse field [year] of type [long]")

		summary, err := e.client.BatchInsert(context.Background(), books, []esclient.SourceData{
			{DocID: "a", Data: map[string]any{"year": 1}},
			{DocID: "b", Data: map[string]any{"year": "x"}},
			{DocID: "c", Data: map[string]any{"year": 3}},
		})
		require.ErrorIs(t, err, esclient.ErrPartialFailure)
		assert.Equal(t, esclient.OutcomePartialFailure, esclient.Classify(err))

		var pf *esclient.PartialFailureError
		require.True(t, errors.As(err, &pf))
		assert.Equal(t, "batch_insert", pf.Op)
		assert.Equal(t, []string{"b"}, pf.IDs())
		assert.Equal(t, http.StatusBadRequest, pf.Failures[0].Status)
		assert.Equal(t, "mapper_parsing_exception", pf.Failures[0].Type)

		require.NotNil(t, summary)
		assert.Equal(t, 3, summary.Submitted)
		assert.Equal(t, 2, summary.Succeeded)
		assert.Equal(t, 2, e.fake.DocCount("books"))
	})
}

func TestClient_BatchUpdate(t *testing.T) {
	t.Parallel()

	t.Run("updates existing documents", func(t *testing.T) {
		t.Parallel()

		e := setup(t,
			estest.WithDocument("books", "a", map[string]any{"title": "A", "stock": 1}),
			estest.WithDocument("books", "b", map[string]any{"title": "B", "stock": 1}),
		)
		summary, err := e.client.BatchUpdate(context.Background(), books, []esclient.SourceData{
			{DocID: "a", Data: map[string]any{"stock": 5}},
			{Data: map[string]any{"stock": 9}},
			{DocID: "b", Data: map[string]any{"stock": 6}},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Submitted)
		assert.Equal(t, 1, summary.Skipped)

		a, _ := e.fake.Doc("books", "a")
		assert.Equal(t, "A", a["title"])
		assert.Equal(t, float64(5), a["stock"])
		b, _ := e.fake.Doc("books", "b")
		assert.Equal(t, float64(6), b["stock"])
	})

	t.Run("missing documents are reported", func(t *testing.T) {
		t.Parallel()

		e := setup(t, estest.WithDocument("books", "a", map[string]any{"stock": 1}))
		_, err := e.client.BatchUpdate(context.Background(), books, []esclient.SourceData{
			{DocID: "a", Data: map[string]any{"stock": 2}},
			{DocID: "ghost", Data: map[string]any{"stock": 2}},
		})

		var pf *esclient.PartialFailureError
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, []string{"ghost"}, pf.IDs())
		assert.Equal(t, "document_missing_exception", pf.Failures[0].Type)
	})

	t.Run("all blank ids send nothing", func(t *testing.T) {
		t.Parallel()

		e := setup(t)
		summary, err := e.client.BatchUpdate(context.Background(), books, []esclient.SourceData{{Data: map[string]any{}}})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Skipped)
		assert.Empty(t, e.fake.Requests())
	})
}

package esclient

import (
	"context"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

const defaultScriptLang = "painless"

type byQueryResponse struct {
	Took             int64 `json:"took"`
	Total            int64 `json:"total"`
	Updated          int64 `json:"updated"`
	Deleted          int64 `json:"deleted"`
	Batches          int64 `json:"batches"`
	VersionConflicts int64 `json:"version_conflicts"`
	Noops            int64 `json:"noops"`
	Failures         []struct {
		ID     string `json:"id"`
		Status int    `json:"status"`
		Cause  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"cause"`
	} `json:"failures"`
}

func (r *byQueryResponse) result() *ByQueryResult {
	return &ByQueryResult{
		Took:             r.Took,
		Total:            r.Total,
		Updated:          r.Updated,
		Deleted:          r.Deleted,
		Batches:          r.Batches,
		VersionConflicts: r.VersionConflicts,
		Noops:            r.Noops,
	}
}

func (r *byQueryResponse) failures(op string) error {
	if len(r.Failures) == 0 {
		return nil
	}
	pf := &PartialFailureError{Op: op, Failures: make([]ItemFailure, len(r.Failures))}
	for i, f := range r.Failures {
		pf.Failures[i] = ItemFailure{ID: f.ID, Status: f.Status, Type: f.Cause.Type, Reason: f.Cause.Reason}
	}
	return pf
}

// DeleteIndex deletes every document of the index with a match_all
// delete-by-query. The index and its mapping are kept. It returns the number
// of deleted documents; rejected documents are reported through
// *PartialFailureError.
func (c *Client) DeleteIndex(ctx context.Context, info IndexInfo) (int64, error) {
	cl, err := c.begin(ctx, "delete_index", info, "")
	if err != nil {
		return 0, err
	}

	body, err := jsonBody(map[string]any{"query": queryOrMatchAll(nil)})
	if err != nil {
		return 0, cl.fail(err)
	}

	var out byQueryResponse
	if err := cl.run(esapi.DeleteByQueryRequest{
		Index:     []string{info.IndexName},
		Body:      body,
		Conflicts: "proceed",
		Header:    cl.header(),
	}, &out); err != nil {
		return 0, cl.fail(err)
	}
	if err := out.failures("delete_index"); err != nil {
		return out.Deleted, cl.fail(err)
	}

	cl.done(slog.Int64("deleted", out.Deleted))
	return out.Deleted, nil
}

// UpdateByQuery runs script on every document matching query (all documents
// when nil), processing batchSize documents per scroll batch (cluster default
// when not positive). Version conflicts are counted, not fatal. Rejected
// documents are reported through *PartialFailureError alongside the result.
func (c *Client) UpdateByQuery(
	ctx context.Context,
	info IndexInfo,
	query *types.Query,
	script Script,
	batchSize int,
) (*ByQueryResult, error) {
	cl, err := c.begin(ctx, "update_by_query", info, "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(script.Source) == "" {
		return nil, cl.fail(invalid("script source is required"))
	}

	lang := script.Lang
	if lang == "" {
		lang = defaultScriptLang
	}
	s := map[string]any{"source": script.Source, "lang": lang}
	if len(script.Params) > 0 {
		s["params"] = script.Params
	}

	body, err := jsonBody(map[string]any{
		"query":  queryOrMatchAll(query),
		"script": s,
	})
	if err != nil {
		return nil, cl.fail(err)
	}

	req := esapi.UpdateByQueryRequest{
		Index:     []string{info.IndexName},
		Body:      body,
		Conflicts: "proceed",
		Header:    cl.header(),
	}
	if batchSize > 0 {
		req.ScrollSize = &batchSize
	}

	var out byQueryResponse
	if err := cl.run(req, &out); err != nil {
		return nil, cl.fail(err)
	}
	result := out.result()
	if err := out.failures("update_by_query"); err != nil {
		return result, cl.fail(err)
	}

	cl.done(slog.Int64("updated", result.Updated))
	return result, nil
}

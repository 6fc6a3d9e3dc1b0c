package esclient

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/tidwall/gjson"

	"github.com/dmitrymomot/searchkit/pkg/logger"
)

const defaultScrollKeepAlive = time.Minute

type searchResponse struct {
	Took     int    `json:"took"`
	TimedOut bool   `json:"timed_out"`
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		// Total is an object since 7.0 and a plain number with
		// rest_total_hits_as_int.
		Total    json.RawMessage `json:"total"`
		MaxScore *float64        `json:"max_score"`
		Hits     []struct {
			Index     string              `json:"_index"`
			ID        string              `json:"_id"`
			Score     *float64            `json:"_score"`
			Source    map[string]any      `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

func (r *searchResponse) result() *SearchResult {
	out := &SearchResult{
		Took:     r.Took,
		TimedOut: r.TimedOut,
		ScrollID: r.ScrollID,
		MaxScore: r.Hits.MaxScore,
		Hits:     make([]Hit, 0, len(r.Hits.Hits)),
	}

	total := gjson.ParseBytes(r.Hits.Total)
	if total.IsObject() {
		out.Total = total.Get("value").Int()
		out.TotalRelation = total.Get("relation").String()
	} else {
		out.Total = total.Int()
		out.TotalRelation = "eq"
	}

	for _, h := range r.Hits.Hits {
		out.Hits = append(out.Hits, Hit{
			Index:     h.Index,
			ID:        h.ID,
			Score:     h.Score,
			Source:    h.Source,
			Highlight: h.Highlight,
		})
	}
	return out
}

// searchBody renders req as a search request body.
func searchBody(req SearchRequest) map[string]any {
	body := map[string]any{"query": queryOrMatchAll(req.Query)}
	if req.From > 0 {
		body["from"] = req.From
	}
	if req.Size > 0 {
		body["size"] = req.Size
	}
	if len(req.Fields) > 0 {
		body["_source"] = req.Fields
	}

	order := req.SortOrder
	if order == "" {
		order = SortDesc
	}
	var sort []map[string]any
	if req.SortField != "" {
		sort = append(sort, map[string]any{req.SortField: map[string]any{"order": SortAsc}})
	}
	body["sort"] = append(sort, map[string]any{"_score": map[string]any{"order": order}})

	if h := req.Highlight; h != nil && len(h.Fields) > 0 {
		fields := make(map[string]any, len(h.Fields))
		for _, f := range h.Fields {
			fields[f] = map[string]any{}
		}
		hl := map[string]any{"fields": fields}
		if len(h.PreTags) > 0 {
			hl["pre_tags"] = h.PreTags
		}
		if len(h.PostTags) > 0 {
			hl["post_tags"] = h.PostTags
		}
		if h.FragmentSize > 0 {
			hl["fragment_size"] = h.FragmentSize
		}
		if h.NumberOfFragments > 0 {
			hl["number_of_fragments"] = h.NumberOfFragments
		}
		body["highlight"] = hl
	}
	return body
}

func queryOrMatchAll(q *types.Query) *types.Query {
	if q == nil {
		return &types.Query{MatchAll: &types.MatchAllQuery{}}
	}
	return q
}

// ScrollKeepAlive is the cursor lifetime SearchByTerm requests for req.
func (req SearchRequest) ScrollKeepAlive() time.Duration {
	if !req.NeedScroll {
		return 0
	}
	if req.ScrollMinutes <= 0 {
		return defaultScrollKeepAlive
	}
	return time.Duration(req.ScrollMinutes) * time.Minute
}

// SearchByTerm runs req against the index. With NeedScroll set the result
// carries a ScrollID that can be passed to Scroll and must be released with
// ClearScroll.
func (c *Client) SearchByTerm(ctx context.Context, info IndexInfo, req SearchRequest) (*SearchResult, error) {
	cl, err := c.begin(ctx, "search_by_term", info, "")
	if err != nil {
		return nil, err
	}
	if req.From < 0 || req.Size < 0 {
		return nil, cl.fail(invalid("from and size must not be negative"))
	}

	body, err := jsonBody(searchBody(req))
	if err != nil {
		return nil, cl.fail(err)
	}

	var out searchResponse
	if err := cl.run(esapi.SearchRequest{
		Index:  []string{info.IndexName},
		Body:   body,
		Scroll: req.ScrollKeepAlive(),
		Header: cl.header(),
	}, &out); err != nil {
		return nil, cl.fail(err)
	}

	result := out.result()
	cl.done(logger.Count("hits", len(result.Hits)))
	return result, nil
}

// Scroll fetches the next page of a scroll cursor and extends its lifetime
// by keepAlive (one minute when not positive). An expired or unknown cursor
// fails with ErrNotFound.
func (c *Client) Scroll(ctx context.Context, info IndexInfo, scrollID string, keepAlive time.Duration) (*SearchResult, error) {
	cl, err := c.begin(ctx, "scroll", info, "")
	if err != nil {
		return nil, err
	}
	if scrollID == "" {
		return nil, cl.fail(invalid("scroll id is required"))
	}
	if keepAlive <= 0 {
		keepAlive = defaultScrollKeepAlive
	}

	body, err := jsonBody(map[string]any{
		"scroll":    strconv.FormatInt(keepAlive.Milliseconds(), 10) + "ms",
		"scroll_id": scrollID,
	})
	if err != nil {
		return nil, cl.fail(err)
	}

	var out searchResponse
	if err := cl.run(esapi.ScrollRequest{
		Body:   body,
		Header: cl.header(),
	}, &out); err != nil {
		return nil, cl.fail(err)
	}

	result := out.result()
	cl.done(logger.Count("hits", len(result.Hits)))
	return result, nil
}

// ClearScroll releases scroll cursors. Without ids it does nothing.
func (c *Client) ClearScroll(ctx context.Context, info IndexInfo, scrollIDs ...string) error {
	if len(scrollIDs) == 0 {
		return nil
	}
	cl, err := c.begin(ctx, "clear_scroll", info, "")
	if err != nil {
		return err
	}

	body, err := jsonBody(map[string]any{"scroll_id": scrollIDs})
	if err != nil {
		return cl.fail(err)
	}

	if err := cl.run(esapi.ClearScrollRequest{
		Body:   body,
		Header: cl.header(),
	}, nil); err != nil {
		return cl.fail(err)
	}

	cl.done(logger.Count("cursors", len(scrollIDs)))
	return nil
}

// Count returns the number of documents matching query (all documents when nil).
func (c *Client) Count(ctx context.Context, info IndexInfo, query *types.Query) (int64, error) {
	cl, err := c.begin(ctx, "count", info, "")
	if err != nil {
		return 0, err
	}

	body, err := jsonBody(map[string]any{"query": queryOrMatchAll(query)})
	if err != nil {
		return 0, cl.fail(err)
	}

	var out struct {
		Count int64 `json:"count"`
	}
	if err := cl.run(esapi.CountRequest{
		Index:  []string{info.IndexName},
		Body:   body,
		Header: cl.header(),
	}, &out); err != nil {
		return 0, cl.fail(err)
	}

	cl.done()
	return out.Count, nil
}

package esclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dmitrymomot/searchkit/pkg/logger"
)

// BatchInsert indexes every document with a non-blank DocID in one bulk
// request. Documents with a blank DocID are skipped and counted in the
// summary. When no document is left the cluster is not contacted.
// Rejected items are reported through *PartialFailureError; the summary is
// returned in that case too.
func (c *Client) BatchInsert(ctx context.Context, info IndexInfo, docs []SourceData) (*BulkSummary, error) {
	return c.bulk(ctx, "batch_insert", "index", info, docs)
}

// BatchUpdate partially updates every document with a non-blank DocID in one
// bulk request, with the same skip and failure rules as BatchInsert.
// Missing documents are reported as failed items.
func (c *Client) BatchUpdate(ctx context.Context, info IndexInfo, docs []SourceData) (*BulkSummary, error) {
	return c.bulk(ctx, "batch_update", "update", info, docs)
}

// bulkLines renders the action and source lines of one document.
func bulkLines(action string, d SourceData) (meta, source []byte, err error) {
	meta, err = sjson.SetBytes([]byte(`{}`), action+"._id", d.DocID)
	if err != nil {
		return nil, nil, err
	}
	source = []byte(`{}`)
	if d.Data != nil {
		if source, err = json.Marshal(d.Data); err != nil {
			return nil, nil, err
		}
	}
	if action == "update" {
		if source, err = sjson.SetRawBytes([]byte(`{}`), "doc", source); err != nil {
			return nil, nil, err
		}
	}
	return meta, source, nil
}

func (c *Client) bulk(ctx context.Context, op, action string, info IndexInfo, docs []SourceData) (*BulkSummary, error) {
	cl, err := c.begin(ctx, op, info, "")
	if err != nil {
		return nil, err
	}

	summary := &BulkSummary{}
	var buf bytes.Buffer
	for i, d := range docs {
		if d.DocID == "" {
			summary.Skipped++
			cl.log.LogAttrs(cl.ctx, slog.LevelWarn, "skipping document without id",
				append(cl.attrs, slog.Int("position", i))...)
			continue
		}
		meta, source, err := bulkLines(action, d)
		if err != nil {
			return summary, cl.fail(errors.Join(ErrInvalidRequest, err))
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(source)
		buf.WriteByte('\n')
		summary.Submitted++
	}

	if summary.Submitted == 0 {
		cl.done(logger.Count("skipped", summary.Skipped))
		return summary, nil
	}

	res, err := cl.do(esapi.BulkRequest{
		Index:   info.IndexName,
		Body:    &buf,
		Refresh: c.refresh,
		Header:  cl.header(),
	})
	if err != nil {
		return summary, cl.fail(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return summary, cl.fail(responseError(res))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return summary, cl.fail(errors.Join(ErrUnexpectedResponse, err))
	}
	if !gjson.ValidBytes(body) {
		return summary, cl.fail(errors.Join(ErrUnexpectedResponse, errors.New("bulk response is not valid JSON")))
	}

	parsed := gjson.ParseBytes(body)
	summary.Took = parsed.Get("took").Int()
	failures := bulkFailures(parsed)
	summary.Succeeded = summary.Submitted - len(failures)

	if len(failures) > 0 {
		return summary, cl.fail(&PartialFailureError{Op: op, Failures: failures})
	}

	cl.done(
		logger.Count("submitted", summary.Submitted),
		logger.Count("skipped", summary.Skipped),
	)
	return summary, nil
}

// bulkFailures collects the items of a bulk response that carry an error.
func bulkFailures(res gjson.Result) []ItemFailure {
	if !res.Get("errors").Bool() {
		return nil
	}
	var out []ItemFailure
	res.Get("items").ForEach(func(_, item gjson.Result) bool {
		item.ForEach(func(_, v gjson.Result) bool {
			if e := v.Get("error"); e.Exists() {
				out = append(out, ItemFailure{
					ID:     v.Get("_id").String(),
					Status: int(v.Get("status").Int()),
					Type:   e.Get("type").String(),
					Reason: e.Get("reason").String(),
				})
			}
			return true
		})
		return true
	})
	return out
}

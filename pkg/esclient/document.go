package esclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/dmitrymomot/searchkit/pkg/logger"
)

type writeResponse struct {
	ID      string `json:"_id"`
	Version int64  `json:"_version"`
	Result  string `json:"result"`
}

// Insert indexes doc.Data under doc.DocID, replacing any previous version.
// A blank DocID lets the cluster assign the id. The stored id is returned.
func (c *Client) Insert(ctx context.Context, info IndexInfo, doc SourceData) (string, error) {
	cl, err := c.begin(ctx, "insert", info, doc.DocID)
	if err != nil {
		return "", err
	}
	if doc.Data == nil {
		return "", cl.fail(invalid("document data is required"))
	}

	body, err := jsonBody(doc.Data)
	if err != nil {
		return "", cl.fail(err)
	}

	var out writeResponse
	if err := cl.run(esapi.IndexRequest{
		Index:      info.IndexName,
		DocumentID: doc.DocID,
		Body:       body,
		Refresh:    c.refresh,
		Header:     cl.header(),
	}, &out); err != nil {
		return "", cl.fail(err)
	}

	cl.done(logger.DocID(out.ID))
	return out.ID, nil
}

// Update merges doc.Data into the stored document doc.DocID.
// It fails with ErrNotFound when the document does not exist.
func (c *Client) Update(ctx context.Context, info IndexInfo, doc SourceData) error {
	cl, err := c.begin(ctx, "update", info, doc.DocID)
	if err != nil {
		return err
	}
	if doc.DocID == "" {
		return cl.fail(invalid("document id is required"))
	}

	body, err := jsonBody(map[string]any{"doc": doc.Data})
	if err != nil {
		return cl.fail(err)
	}

	if err := cl.run(esapi.UpdateRequest{
		Index:      info.IndexName,
		DocumentID: doc.DocID,
		Body:       body,
		Refresh:    c.refresh,
		Header:     cl.header(),
	}, nil); err != nil {
		return cl.fail(err)
	}

	cl.done()
	return nil
}

// DeleteDoc removes a single document. It fails with ErrNotFound when the
// document does not exist.
func (c *Client) DeleteDoc(ctx context.Context, info IndexInfo, docID string) error {
	cl, err := c.begin(ctx, "delete_doc", info, docID)
	if err != nil {
		return err
	}
	if docID == "" {
		return cl.fail(invalid("document id is required"))
	}

	if err := cl.run(esapi.DeleteRequest{
		Index:      info.IndexName,
		DocumentID: docID,
		Refresh:    c.refresh,
		Header:     cl.header(),
	}, nil); err != nil {
		return cl.fail(err)
	}

	cl.done()
	return nil
}

// ExistsDoc reports whether docID is stored in the index. A missing document
// is (false, nil); any other failure is returned as an error.
func (c *Client) ExistsDoc(ctx context.Context, info IndexInfo, docID string) (bool, error) {
	cl, err := c.begin(ctx, "exists_doc", info, docID)
	if err != nil {
		return false, err
	}
	if docID == "" {
		return false, cl.fail(invalid("document id is required"))
	}

	res, err := cl.do(esapi.ExistsRequest{
		Index:      info.IndexName,
		DocumentID: docID,
		Header:     cl.header(),
	})
	if err != nil {
		return false, cl.fail(err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		cl.done()
		return false, nil
	}
	if err := cl.decode(res, nil); err != nil {
		return false, cl.fail(err)
	}

	cl.done()
	return true, nil
}

// GetDoc returns the _source of docID. When fields are given only those keys
// are returned. A missing document fails with ErrNotFound.
func (c *Client) GetDoc(ctx context.Context, info IndexInfo, docID string, fields ...string) (map[string]any, error) {
	cl, err := c.begin(ctx, "get_doc", info, docID)
	if err != nil {
		return nil, err
	}
	if docID == "" {
		return nil, cl.fail(invalid("document id is required"))
	}

	var out struct {
		Found  bool           `json:"found"`
		Source map[string]any `json:"_source"`
	}
	if err := cl.run(esapi.GetRequest{
		Index:          info.IndexName,
		DocumentID:     docID,
		SourceIncludes: fields,
		Header:         cl.header(),
	}, &out); err != nil {
		return nil, cl.fail(err)
	}
	if !out.Found {
		return nil, cl.fail(errors.Join(ErrNotFound, errors.New(docID)))
	}

	if out.Source == nil {
		out.Source = map[string]any{}
	}
	cl.done()
	return out.Source, nil
}

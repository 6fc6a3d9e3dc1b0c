package esclient

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tidwall/gjson"

	"github.com/dmitrymomot/searchkit/pkg/logger"
)

// AnalyzeText tokenizes text with the client's analyzer and returns the tokens
// in order. The analysis is cluster-level: info selects the cluster, and the
// index does not have to exist.
func (c *Client) AnalyzeText(ctx context.Context, info IndexInfo, text string) ([]string, error) {
	cl, err := c.begin(ctx, "analyze_text", info, "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, cl.fail(invalid("text is required"))
	}

	body, err := jsonBody(map[string]any{"analyzer": c.analyzer, "text": text})
	if err != nil {
		return nil, cl.fail(err)
	}

	res, err := cl.do(esapi.IndicesAnalyzeRequest{
		Body:   body,
		Header: cl.header(),
	})
	if err != nil {
		return nil, cl.fail(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, cl.fail(responseError(res))
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, cl.fail(errors.Join(ErrUnexpectedResponse, err))
	}

	raw := gjson.GetBytes(data, "tokens.#.token").Array()
	tokens := make([]string, len(raw))
	for i, t := range raw {
		tokens[i] = t.String()
	}

	cl.done(logger.Count("tokens", len(tokens)))
	return tokens, nil
}

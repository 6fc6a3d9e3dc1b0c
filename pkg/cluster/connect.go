package cluster

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/opensearch-project/opensearch-go/v2"
)

// newTransport creates the client for cfg's engine. No request is sent:
// connectivity is verified separately by Healthcheck.
func newTransport(cfg Config, hosts []Host, rt http.RoundTripper) (esapi.Transport, error) {
	addresses := make([]string, len(hosts))
	for i, h := range hosts {
		addresses[i] = h.URL(cfg.scheme())
	}

	switch cfg.engine() {
	case EngineElasticsearch:
		client, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses:  addresses,
			Username:   cfg.Username,
			Password:   cfg.Password,
			MaxRetries: cfg.MaxRetries,
			Transport:  rt,
		})
		if err != nil {
			return nil, errors.Join(ErrConnectionFailed, err)
		}
		return client, nil

	case EngineOpenSearch:
		client, err := opensearch.NewClient(opensearch.Config{
			Addresses:  addresses,
			Username:   cfg.Username,
			Password:   cfg.Password,
			MaxRetries: cfg.MaxRetries,
			Transport:  rt,
		})
		if err != nil {
			return nil, errors.Join(ErrConnectionFailed, err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}
}

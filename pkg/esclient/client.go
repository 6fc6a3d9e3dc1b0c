package esclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/dmitrymomot/searchkit/pkg/logger"
	"github.com/dmitrymomot/searchkit/pkg/opaqueid"
)

// DefaultAnalyzer is the analyzer used by AnalyzeText unless WithAnalyzer is set.
const DefaultAnalyzer = "ik_smart"

// Resolver returns the transport registered for a cluster name.
// *cluster.Registry implements it.
type Resolver interface {
	Transport(name string) (esapi.Transport, error)
}

// Client runs document operations against the clusters known to a Resolver.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	clusters Resolver
	log      *slog.Logger
	analyzer string
	refresh  string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for operation failures and debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithAnalyzer overrides the analyzer used by AnalyzeText.
func WithAnalyzer(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.analyzer = name
		}
	}
}

// WithRefresh sets the refresh parameter ("true", "false" or "wait_for")
// sent with index, update, delete and bulk requests.
func WithRefresh(refresh string) Option {
	return func(c *Client) {
		c.refresh = refresh
	}
}

// New creates a Client on top of clusters.
func New(clusters Resolver, opts ...Option) *Client {
	c := &Client{
		clusters: clusters,
		log:      slog.Default(),
		analyzer: DefaultAnalyzer,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("esclient"))
	return c
}

// call carries the per-operation context: resolved transport, opaque id and
// log attributes.
type call struct {
	ctx       context.Context
	op        string
	opaqueID  string
	transport esapi.Transport
	log       *slog.Logger
	attrs     []slog.Attr
	started   time.Time
}

// begin validates info, resolves the cluster and tags the context with an
// opaque id. Errors are logged before being returned.
func (c *Client) begin(ctx context.Context, op string, info IndexInfo, docID string) (*call, error) {
	ctx, id := opaqueid.Ensure(ctx)
	cl := &call{
		ctx:      ctx,
		op:       op,
		opaqueID: id,
		log:      c.log,
		attrs: []slog.Attr{
			logger.Operation(op),
			logger.Cluster(info.ClusterName),
			logger.Index(info.IndexName),
			logger.DocID(docID),
		},
		started: time.Now(),
	}

	if err := info.validate(); err != nil {
		return nil, cl.fail(err)
	}
	transport, err := c.clusters.Transport(info.ClusterName)
	if err != nil {
		return nil, cl.fail(err)
	}
	cl.transport = transport
	return cl, nil
}

func (cl *call) header() http.Header {
	h := http.Header{}
	opaqueid.Set(h, cl.opaqueID)
	return h
}

// do executes req. Failures to get any answer are joined with ErrTransport.
func (cl *call) do(req esapi.Request) (*esapi.Response, error) {
	res, err := req.Do(cl.ctx, cl.transport)
	if err != nil {
		return nil, errors.Join(ErrTransport, err)
	}
	return res, nil
}

// decode checks the status of res and unmarshals its body into v.
// The body is always closed.
func (cl *call) decode(res *esapi.Response, v any) error {
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res)
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return errors.Join(ErrUnexpectedResponse, err)
	}
	return nil
}

// run is do followed by decode.
func (cl *call) run(req esapi.Request, v any) error {
	res, err := cl.do(req)
	if err != nil {
		return err
	}
	return cl.decode(res, v)
}

func (cl *call) fail(err error) error {
	level := slog.LevelError
	if Classify(err) == OutcomePartialFailure {
		level = slog.LevelWarn
	}
	cl.log.LogAttrs(cl.ctx, level, cl.op+" failed",
		append(cl.attrs, logger.Error(err), logger.Duration(time.Since(cl.started)))...)
	return err
}

func (cl *call) done(attrs ...slog.Attr) {
	cl.log.LogAttrs(cl.ctx, slog.LevelDebug, cl.op+" done",
		append(append(cl.attrs, attrs...), logger.Duration(time.Since(cl.started)))...)
}

func jsonBody(v any) (*bytes.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}
	return bytes.NewReader(data), nil
}

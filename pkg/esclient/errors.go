package esclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tidwall/gjson"

	"github.com/dmitrymomot/searchkit/pkg/cluster"
)

var (
	// ErrInvalidRequest is returned before dispatch when arguments are missing or malformed.
	ErrInvalidRequest = errors.New("invalid search request")

	// ErrNotFound is returned for any 404 answer: a missing document, index or
	// scroll cursor. The joined *ResponseError carries the exact type.
	ErrNotFound = errors.New("resource not found")

	// ErrPartialFailure is the sentinel behind *PartialFailureError.
	ErrPartialFailure = errors.New("search operation partially failed")

	// ErrTransport indicates that the request never got an HTTP answer.
	ErrTransport = errors.New("search cluster request failed")

	// ErrUnexpectedResponse indicates a non-2xx answer or an undecodable body.
	ErrUnexpectedResponse = errors.New("unexpected search cluster response")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
}

// ItemFailure describes one failed item of a bulk or by-query request.
type ItemFailure struct {
	ID     string
	Status int
	Type   string
	Reason string
}

// PartialFailureError is returned when some items of a multi-document
// operation were rejected. It matches ErrPartialFailure with errors.Is.
type PartialFailureError struct {
	Op       string
	Failures []ItemFailure
}

func (e *PartialFailureError) Error() string {
	if len(e.Failures) == 0 {
		return e.Op + ": partial failure"
	}
	first := e.Failures[0]
	return fmt.Sprintf("%s: %d item(s) failed, first %q: %s: %s",
		e.Op, len(e.Failures), first.ID, first.Type, first.Reason)
}

func (e *PartialFailureError) Unwrap() error {
	return ErrPartialFailure
}

// IDs returns the ids of the failed items.
func (e *PartialFailureError) IDs() []string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.ID
	}
	return ids
}

// ResponseError is a non-2xx answer from the cluster.
type ResponseError struct {
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%d %s]", e.StatusCode, http.StatusText(e.StatusCode)))
	if e.Type != "" {
		b.WriteString(" " + e.Type)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	return b.String()
}

// responseError reads the error body of res. 404 answers match ErrNotFound,
// everything else ErrUnexpectedResponse.
func responseError(res *esapi.Response) error {
	re := &ResponseError{StatusCode: res.StatusCode}
	if res.Body != nil {
		body, _ := io.ReadAll(res.Body)
		parsed := gjson.ParseBytes(body)
		switch e := parsed.Get("error"); {
		case e.IsObject():
			re.Type = e.Get("type").String()
			re.Reason = e.Get("reason").String()
		case e.Exists():
			re.Reason = e.String()
		default:
			re.Reason = parsed.Get("result").String()
		}
	}
	if res.StatusCode == http.StatusNotFound {
		return errors.Join(ErrNotFound, re)
	}
	return errors.Join(ErrUnexpectedResponse, re)
}

// Outcome is the classification of an operation result.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomePartialFailure
	OutcomeTransportError
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomePartialFailure:
		return "partial_failure"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeInvalid:
		return "invalid"
	}
	return "unknown"
}

// Classify maps an error returned by Client onto an Outcome.
// Client-side 4xx answers (other than 404) count as invalid requests;
// unreachable or degraded clusters and server errors as transport errors.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrPartialFailure):
		return OutcomePartialFailure
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, cluster.ErrUnknownCluster):
		return OutcomeInvalid
	}
	var re *ResponseError
	if errors.As(err, &re) && re.StatusCode >= 400 && re.StatusCode < 500 {
		return OutcomeInvalid
	}
	return OutcomeTransportError
}

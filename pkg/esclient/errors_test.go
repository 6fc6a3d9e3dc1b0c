package esclient_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/searchkit/pkg/cluster"
	"github.com/dmitrymomot/searchkit/pkg/esclient"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want esclient.Outcome
	}{
		{name: "nil", err: nil, want: esclient.OutcomeOK},
		{name: "not found", err: errors.Join(esclient.ErrNotFound, &esclient.ResponseError{StatusCode: http.StatusNotFound}), want: esclient.OutcomeNotFound},
		{name: "partial failure", err: &esclient.PartialFailureError{Op: "batch_insert"}, want: esclient.OutcomePartialFailure},
		{name: "wrapped partial failure", err: fmt.Errorf("sync: %w", &esclient.PartialFailureError{Op: "batch_update"}), want: esclient.OutcomePartialFailure},
		{name: "invalid request", err: esclient.ErrInvalidRequest, want: esclient.OutcomeInvalid},
		{name: "unknown cluster", err: cluster.ErrUnknownCluster, want: esclient.OutcomeInvalid},
		{name: "bad request", err: errors.Join(esclient.ErrUnexpectedResponse, &esclient.ResponseError{StatusCode: http.StatusBadRequest}), want: esclient.OutcomeInvalid},
		{name: "server error", err: errors.Join(esclient.ErrUnexpectedResponse, &esclient.ResponseError{StatusCode: http.StatusServiceUnavailable}), want: esclient.OutcomeTransportError},
		{name: "transport", err: errors.Join(esclient.ErrTransport, errors.New("connection refused")), want: esclient.OutcomeTransportError},
		{name: "degraded cluster", err: errors.Join(cluster.ErrClusterUnavailable, cluster.ErrNoHosts), want: esclient.OutcomeTransportError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, esclient.Classify(tt.err))
		})
	}
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ok", esclient.OutcomeOK.String())
	assert.Equal(t, "partial_failure", esclient.OutcomePartialFailure.String())
	assert.Equal(t, "unknown", esclient.Outcome(42).String())
}

func TestPartialFailureError(t *testing.T) {
	t.Parallel()

	err := &esclient.PartialFailureError{
		Op: "batch_insert",
		Failures: []esclient.ItemFailure{
			{ID: "b", Status: 400, Type: "mapper_parsing_exception", Reason: "bad year"},
			{ID: "c", Status: 404, Type: "document_missing_exception", Reason: "missing"},
		},
	}
	assert.ErrorIs(t, err, esclient.ErrPartialFailure)
	assert.Equal(t, []string{"b", "c"}, err.IDs())
	assert.Equal(t, `batch_insert: 2 item(s) failed, first "b": mapper_parsing_exception: bad year`, err.Error())
}

func TestResponseError(t *testing.T) {
	t.Parallel()

	err := &esclient.ResponseError{StatusCode: 400, Type: "parsing_exception", Reason: "unknown query [foo]"}
	assert.Equal(t, "[400 Bad Request] parsing_exception: unknown query [foo]", err.Error())
}

package esclient

import (
	"strings"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

// IndexInfo addresses an index on a configured cluster.
type IndexInfo struct {
	ClusterName string
	IndexName   string
}

func (i IndexInfo) validate() error {
	if strings.TrimSpace(i.ClusterName) == "" {
		return invalid("cluster name is required")
	}
	if strings.TrimSpace(i.IndexName) == "" {
		return invalid("index name is required")
	}
	return nil
}

// SourceData is a document together with its identifier.
// DocID may be blank for Insert, in which case the cluster assigns one.
type SourceData struct {
	DocID string
	Data  map[string]any
}

// SortOrder is the direction applied to the _score sort.
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// SearchRequest describes a SearchByTerm call.
type SearchRequest struct {
	// Query is the query DSL; nil matches every document.
	Query *types.Query
	// Fields restricts the returned _source to these keys.
	Fields []string
	From   int
	// Size is the page size; zero leaves the cluster default (10).
	Size int

	// NeedScroll opens a scroll cursor kept alive for ScrollMinutes
	// (values below one minute are raised to one).
	NeedScroll    bool
	ScrollMinutes int64

	// SortField, when set, is sorted ascending before _score. SortOrder
	// applies to _score only and defaults to SortDesc.
	SortField string
	SortOrder SortOrder

	Highlight *Highlight
}

// Highlight requests highlighted fragments for the listed fields.
type Highlight struct {
	Fields            []string
	PreTags           []string
	PostTags          []string
	FragmentSize      int
	NumberOfFragments int
}

// Script is an update script for UpdateByQuery.
type Script struct {
	Source string
	// Lang defaults to painless.
	Lang   string
	Params map[string]any
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Took          int
	TimedOut      bool
	ScrollID      string
	Total         int64
	TotalRelation string
	MaxScore      *float64
	Hits          []Hit
}

// Hit is a single matching document.
type Hit struct {
	Index     string
	ID        string
	Score     *float64
	Source    map[string]any
	Highlight map[string][]string
}

// BulkSummary reports what happened to the documents passed to a bulk call.
type BulkSummary struct {
	// Submitted is the number of actions sent to the cluster.
	Submitted int
	// Skipped is the number of documents dropped for a blank DocID.
	Skipped int
	// Succeeded is the number of submitted actions the cluster applied.
	Succeeded int
	Took      int64
}

// ByQueryResult is the outcome of an update-by-query or delete-by-query call.
type ByQueryResult struct {
	Took             int64
	Total            int64
	Updated          int64
	Deleted          int64
	Batches          int64
	VersionConflicts int64
	Noops            int64
}

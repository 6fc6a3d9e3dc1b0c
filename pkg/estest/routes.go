package estest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/searchkit/pkg/opaqueid"
)

func (c *Cluster) router() http.Handler {
	r := chi.NewRouter()
	r.Use(c.record, productHeader, opaqueid.Middleware, c.injectFailure)

	r.Get("/", c.info)
	r.Head("/", c.info)

	r.Post("/_bulk", c.bulk)
	r.Put("/_bulk", c.bulk)
	r.Post("/_search/scroll", c.scroll)
	r.Get("/_search/scroll", c.scroll)
	r.Delete("/_search/scroll", c.clearScroll)
	r.Post("/_analyze", c.analyze)
	r.Get("/_analyze", c.analyze)

	r.Route("/{index}", func(r chi.Router) {
		r.Post("/_doc", c.indexDoc)
		r.Put("/_doc/{id}", c.indexDoc)
		r.Post("/_doc/{id}", c.indexDoc)
		r.Get("/_doc/{id}", c.getDoc)
		r.Head("/_doc/{id}", c.existsDoc)
		r.Delete("/_doc/{id}", c.deleteDoc)
		r.Post("/_update/{id}", c.updateDoc)
		r.Post("/_bulk", c.bulk)
		r.Put("/_bulk", c.bulk)
		r.Post("/_search", c.search)
		r.Get("/_search", c.search)
		r.Post("/_count", c.count)
		r.Get("/_count", c.count)
		r.Post("/_delete_by_query", c.deleteByQuery)
		r.Post("/_update_by_query", c.updateByQuery)
		r.Post("/_analyze", c.analyze)
		r.Get("/_analyze", c.analyze)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadRequest, "invalid_request_exception",
			fmt.Sprintf("no handler found for uri [%s] and method [%s]", r.URL.Path, r.Method))
	})
	return r
}

func (c *Cluster) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		c.mu.Lock()
		c.requests = append(c.requests, Request{
			Method:   r.Method,
			Path:     r.URL.Path,
			Query:    r.URL.Query(),
			Body:     body,
			OpaqueID: r.Header.Get(opaqueid.Header),
		})
		c.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// productHeader satisfies the product check of the official Go client.
func productHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		next.ServeHTTP(w, r)
	})
}

func (c *Cluster) injectFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		status := c.failWith
		c.mu.Unlock()
		if status != 0 && r.URL.Path != "/" {
			writeError(w, status, "fake_failure_exception", "failure injected by test")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Cluster) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         "estest-node",
		"cluster_name": "estest",
		"cluster_uuid": "estest-uuid",
		"version": map[string]any{
			"number":         "8.18.1",
			"build_flavor":   "default",
			"lucene_version": "9.12.1",
		},
		"tagline": "You Know, for Search",
	})
}

func (c *Cluster) indexDoc(w http.ResponseWriter, r *http.Request) {
	index, id := chi.URLParam(r, "index"), chi.URLParam(r, "id")

	var source map[string]any
	if err := json.NewDecoder(r.Body).Decode(&source); err != nil {
		writeError(w, http.StatusBadRequest, "mapper_parsing_exception", "failed to parse: "+err.Error())
		return
	}

	c.mu.Lock()
	if reason, ok := c.rejected[id]; ok && id != "" {
		c.mu.Unlock()
		writeError(w, http.StatusBadRequest, "mapper_parsing_exception", reason)
		return
	}
	_, existed := c.lookup(index, id)
	d := c.put(index, id, source)
	c.mu.Unlock()

	result, status := "created", http.StatusCreated
	if existed {
		result, status = "updated", http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"_index":   index,
		"_id":      d.id,
		"_version": d.version,
		"result":   result,
	})
}

func (c *Cluster) updateDoc(w http.ResponseWriter, r *http.Request) {
	index, id := chi.URLParam(r, "index"), chi.URLParam(r, "id")

	var body struct {
		Doc map[string]any `json:"doc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "x_content_parse_exception", err.Error())
		return
	}

	c.mu.Lock()
	d, ok := c.lookup(index, id)
	if !ok {
		c.mu.Unlock()
		writeError(w, http.StatusNotFound, "document_missing_exception",
			fmt.Sprintf("[%s]: document missing", id))
		return
	}
	for k, v := range body.Doc {
		d.source[k] = v
	}
	d.version++
	version := d.version
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"_index":   index,
		"_id":      id,
		"_version": version,
		"result":   "updated",
	})
}

func (c *Cluster) getDoc(w http.ResponseWriter, r *http.Request) {
	index, id := chi.URLParam(r, "index"), chi.URLParam(r, "id")

	c.mu.Lock()
	d, ok := c.lookup(index, id)
	var source map[string]any
	var version int64
	if ok {
		source = project(d.source, splitList(r.URL.Query().Get("_source_includes")))
		version = d.version
	}
	c.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"_index": index, "_id": id, "found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"_index":   index,
		"_id":      id,
		"_version": version,
		"found":    true,
		"_source":  source,
	})
}

func (c *Cluster) existsDoc(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	_, ok := c.lookup(chi.URLParam(r, "index"), chi.URLParam(r, "id"))
	c.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (c *Cluster) deleteDoc(w http.ResponseWriter, r *http.Request) {
	index, id := chi.URLParam(r, "index"), chi.URLParam(r, "id")

	c.mu.Lock()
	removed := c.remove(index, id)
	c.mu.Unlock()

	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]any{"_index": index, "_id": id, "result": "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"_index": index, "_id": id, "result": "deleted"})
}

func (c *Cluster) search(w http.ResponseWriter, r *http.Request) {
	index := chi.URLParam(r, "index")

	var req searchBody
	if err := decodeOptional(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "parsing_exception", err.Error())
		return
	}

	size := 10
	if req.Size != nil {
		size = *req.Size
	} else if v := r.URL.Query().Get("size"); v != "" {
		size, _ = strconv.Atoi(v)
	}
	from := req.From
	if v := r.URL.Query().Get("from"); v != "" {
		from, _ = strconv.Atoi(v)
	}

	c.mu.Lock()
	hits := c.matching(index, req.Query)
	c.mu.Unlock()

	sortHits(hits, req.Sort)
	total := len(hits)
	hits = highlightHits(hits, req.Highlight, req.Query)
	hits = projectHits(hits, req.Source)

	page, rest := paginate(hits, from, size)
	resp := searchResponse(index, total, page)

	if keepAlive := r.URL.Query().Get("scroll"); keepAlive != "" {
		if _, err := parseDuration(keepAlive); err != nil {
			writeError(w, http.StatusBadRequest, "illegal_argument_exception", err.Error())
			return
		}
		c.mu.Lock()
		c.seq++
		id := "scroll-" + strconv.Itoa(c.seq)
		c.cursors[id] = &cursor{index: index, hits: rest, size: size}
		c.mu.Unlock()
		resp["_scroll_id"] = id
	}

	writeJSON(w, http.StatusOK, resp)
}

func (c *Cluster) scroll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ScrollID string `json:"scroll_id"`
		Scroll   string `json:"scroll"`
	}
	if err := decodeOptional(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "parsing_exception", err.Error())
		return
	}
	if body.ScrollID == "" {
		body.ScrollID = r.URL.Query().Get("scroll_id")
	}

	c.mu.Lock()
	cur, ok := c.cursors[body.ScrollID]
	var page []hit
	var index string
	if ok {
		page, cur.hits = paginate(cur.hits, 0, cur.size)
		index = cur.index
	}
	c.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "search_context_missing_exception",
			"No search context found for id ["+body.ScrollID+"]")
		return
	}
	resp := searchResponse(index, len(page), page)
	resp["_scroll_id"] = body.ScrollID
	writeJSON(w, http.StatusOK, resp)
}

func (c *Cluster) clearScroll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ScrollID []string `json:"scroll_id"`
	}
	if err := decodeOptional(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "parsing_exception", err.Error())
		return
	}

	freed := 0
	c.mu.Lock()
	for _, id := range body.ScrollID {
		if _, ok := c.cursors[id]; ok {
			delete(c.cursors, id)
			freed++
		}
	}
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"succeeded": true, "num_freed": freed})
}

func (c *Cluster) count(w http.ResponseWriter, r *http.Request) {
	var req searchBody
	if err := decodeOptional(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "parsing_exception", err.Error())
		return
	}

	c.mu.Lock()
	n := len(c.matching(chi.URLParam(r, "index"), req.Query))
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   n,
		"_shards": map[string]any{"total": 1, "successful": 1, "skipped": 0, "failed": 0},
	})
}

func (c *Cluster) deleteByQuery(w http.ResponseWriter, r *http.Request) {
	index := chi.URLParam(r, "index")

	var req searchBody
	if err := decodeOptional(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "parsing_exception", err.Error())
		return
	}

	start := time.Now()
	var failures []map[string]any
	deleted := 0

	c.mu.Lock()
	hits := c.matching(index, req.Query)
	for _, h := range hits {
		if reason, ok := c.rejected[h.id]; ok {
			failures = append(failures, byQueryFailure(index, h.id, reason))
			continue
		}
		if c.remove(index, h.id) {
			deleted++
		}
	}
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"took":              time.Since(start).Milliseconds(),
		"timed_out":         false,
		"total":             len(hits),
		"deleted":           deleted,
		"batches":           1,
		"version_conflicts": 0,
		"noops":             0,
		"failures":          nonNil(failures),
	})
}

func (c *Cluster) updateByQuery(w http.ResponseWriter, r *http.Request) {
	index := chi.URLParam(r, "index")

	var req struct {
		searchBody
		Script *struct {
			Source string         `json:"source"`
			Lang   string         `json:"lang"`
			Params map[string]any `json:"params"`
		} `json:"script"`
	}
	if err := decodeOptional(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "parsing_exception", err.Error())
		return
	}

	start := time.Now()
	var failures []map[string]any
	updated := 0
	batchSize := 1000
	if v, err := strconv.Atoi(r.URL.Query().Get("scroll_size")); err == nil && v > 0 {
		batchSize = v
	}

	c.mu.Lock()
	hits := c.matching(index, req.Query)
	for _, h := range hits {
		if reason, ok := c.rejected[h.id]; ok {
			failures = append(failures, byQueryFailure(index, h.id, reason))
			continue
		}
		d, _ := c.lookup(index, h.id)
		if req.Script != nil {
			applyScript(d.source, req.Script.Source, req.Script.Params)
		}
		d.version++
		updated++
	}
	c.mu.Unlock()

	batches := 0
	if len(hits) > 0 {
		batches = (len(hits) + batchSize - 1) / batchSize
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"took":              time.Since(start).Milliseconds(),
		"timed_out":         false,
		"total":             len(hits),
		"updated":           updated,
		"batches":           batches,
		"version_conflicts": 0,
		"noops":             0,
		"failures":          nonNil(failures),
	})
}

// lookup must be called with mu held.
func (c *Cluster) lookup(index, id string) (*document, bool) {
	idx, ok := c.indices[index]
	if !ok {
		return nil, false
	}
	d, ok := idx.docs[id]
	return d, ok
}

func byQueryFailure(index, id, reason string) map[string]any {
	return map[string]any{
		"index":  index,
		"id":     id,
		"status": http.StatusBadRequest,
		"cause": map[string]any{
			"type":   "mapper_parsing_exception",
			"reason": reason,
		},
	}
}

func decodeOptional(body io.Reader, v any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, typ, reason string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"root_cause": []map[string]any{{"type": typ, "reason": reason}},
			"type":       typ,
			"reason":     reason,
		},
		"status": status,
	})
}

func nonNil(items []map[string]any) []map[string]any {
	if items == nil {
		return []map[string]any{}
	}
	return items
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDuration understands the time units accepted by the REST API
// ("nanos", "micros", "ms", "s", "m", "h", "d").
func parseDuration(s string) (time.Duration, error) {
	units := []struct {
		suffix string
		unit   time.Duration
	}{
		{"nanos", time.Nanosecond},
		{"micros", time.Microsecond},
		{"ms", time.Millisecond},
		{"s", time.Second},
		{"m", time.Minute},
		{"h", time.Hour},
		{"d", 24 * time.Hour},
	}
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			n, err := strconv.ParseInt(strings.TrimSuffix(s, u.suffix), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("failed to parse time value [%s]", s)
			}
			return time.Duration(n) * u.unit, nil
		}
	}
	return 0, fmt.Errorf("failed to parse time value [%s]: unit is missing", s)
}

// KeepAlive returns the scroll keep-alive requested by r, if any.
func (r Request) KeepAlive() (time.Duration, bool) {
	v := r.Query.Get("scroll")
	if v == "" {
		return 0, false
	}
	d, err := parseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

package estest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

func (c *Cluster) bulk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defaultIndex := chi.URLParam(r, "index")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "parse_exception", err.Error())
		return
	}

	var lines [][]byte
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
			lines = append(lines, append([]byte(nil), line...))
		}
	}
	if len(lines) == 0 {
		writeError(w, http.StatusBadRequest, "action_request_validation_exception",
			"Validation Failed: 1: no requests added;")
		return
	}

	var items []map[string]any
	hasErrors := false

	c.mu.Lock()
	for i := 0; i < len(lines); i++ {
		var action map[string]bulkMeta
		if err := json.Unmarshal(lines[i], &action); err != nil || len(action) != 1 {
			c.mu.Unlock()
			writeError(w, http.StatusBadRequest, "illegal_argument_exception",
				fmt.Sprintf("Malformed action/metadata line [%d]", i+1))
			return
		}

		for op, meta := range action {
			if meta.Index == "" {
				meta.Index = defaultIndex
			}
			var source []byte
			if op != "delete" {
				if i+1 >= len(lines) {
					c.mu.Unlock()
					writeError(w, http.StatusBadRequest, "illegal_argument_exception",
						"The bulk request must be terminated by a newline [\\n]")
					return
				}
				i++
				source = lines[i]
			}
			item := c.bulkItem(op, meta, source)
			if _, failed := item["error"]; failed {
				hasErrors = true
			}
			items = append(items, map[string]any{op: item})
		}
	}
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"took":   time.Since(start).Milliseconds(),
		"errors": hasErrors,
		"items":  items,
	})
}

// bulkItem must be called with mu held.
func (c *Cluster) bulkItem(op string, meta bulkMeta, source []byte) map[string]any {
	item := map[string]any{"_index": meta.Index, "_id": meta.ID}

	fail := func(status int, typ, reason string) map[string]any {
		item["status"] = status
		item["error"] = map[string]any{"type": typ, "reason": reason, "index": meta.Index}
		return item
	}

	if reason, ok := c.rejected[meta.ID]; ok && meta.ID != "" {
		return fail(http.StatusBadRequest, "mapper_parsing_exception", reason)
	}

	switch op {
	case "index", "create":
		var doc map[string]any
		if err := json.Unmarshal(source, &doc); err != nil {
			return fail(http.StatusBadRequest, "mapper_parsing_exception", "failed to parse: "+err.Error())
		}
		_, existed := c.lookup(meta.Index, meta.ID)
		if existed && op == "create" {
			return fail(http.StatusConflict, "version_conflict_engine_exception",
				fmt.Sprintf("[%s]: version conflict, document already exists", meta.ID))
		}
		d := c.put(meta.Index, meta.ID, doc)
		item["_id"] = d.id
		item["_version"] = d.version
		item["status"] = http.StatusCreated
		item["result"] = "created"
		if existed {
			item["status"] = http.StatusOK
			item["result"] = "updated"
		}
	case "update":
		var body struct {
			Doc map[string]any `json:"doc"`
		}
		if err := json.Unmarshal(source, &body); err != nil {
			return fail(http.StatusBadRequest, "x_content_parse_exception", err.Error())
		}
		d, ok := c.lookup(meta.Index, meta.ID)
		if !ok {
			return fail(http.StatusNotFound, "document_missing_exception",
				fmt.Sprintf("[%s]: document missing", meta.ID))
		}
		for k, v := range body.Doc {
			d.source[k] = v
		}
		d.version++
		item["_version"] = d.version
		item["status"] = http.StatusOK
		item["result"] = "updated"
	case "delete":
		if !c.remove(meta.Index, meta.ID) {
			item["status"] = http.StatusNotFound
			item["result"] = "not_found"
			return item
		}
		item["status"] = http.StatusOK
		item["result"] = "deleted"
	default:
		return fail(http.StatusBadRequest, "illegal_argument_exception", "unknown bulk action ["+op+"]")
	}
	return item
}

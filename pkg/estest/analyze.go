package estest

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/go-chi/chi/v5"
)

// analyzers maps REST analyzer names onto bleve analyzers. Names the fake does
// not know (plugin analyzers such as ik_smart) fall back to standard.
var analyzers = map[string]string{
	"standard": standard.Name,
	"simple":   simple.Name,
	"keyword":  keyword.Name,
}

const positionIncrementGap = 100

type analyzeBody struct {
	Analyzer string          `json:"analyzer"`
	Text     json.RawMessage `json:"text"`
}

func (c *Cluster) analyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeBody
	if err := decodeOptional(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "parsing_exception", err.Error())
		return
	}
	if body.Analyzer == "" {
		body.Analyzer = r.URL.Query().Get("analyzer")
	}

	texts := analyzeTexts(body.Text)
	if len(texts) == 0 {
		texts = r.URL.Query()["text"]
	}
	if len(texts) == 0 {
		writeError(w, http.StatusBadRequest, "action_request_validation_exception",
			"Validation Failed: 1: text is missing;")
		return
	}

	index := chi.URLParam(r, "index")
	if index != "" {
		c.mu.Lock()
		_, ok := c.indices[index]
		c.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+index+"]")
			return
		}
	}

	name, ok := analyzers[body.Analyzer]
	if !ok {
		name = standard.Name
	}

	mapping := bleve.NewIndexMapping()
	tokens := make([]map[string]any, 0)
	offset, position := 0, 0
	for _, text := range texts {
		stream, err := mapping.AnalyzeText(name, []byte(text))
		if err != nil {
			writeError(w, http.StatusBadRequest, "illegal_argument_exception", err.Error())
			return
		}
		last := 0
		for _, tok := range stream {
			tokens = append(tokens, map[string]any{
				"token":        string(tok.Term),
				"start_offset": offset + utf8.RuneCount([]byte(text[:tok.Start])),
				"end_offset":   offset + utf8.RuneCount([]byte(text[:tok.End])),
				"type":         tokenType(tok),
				"position":     position + tok.Position - 1,
			})
			last = tok.Position
		}
		offset += utf8.RuneCountInString(text) + 1
		position += last + positionIncrementGap
	}

	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

func analyzeTexts(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	_ = json.Unmarshal(raw, &many)
	return many
}

func tokenType(tok *analysis.Token) string {
	switch tok.Type {
	case analysis.Numeric:
		return "<NUM>"
	case analysis.Ideographic:
		return "<IDEOGRAPHIC>"
	}
	return "<ALPHANUM>"
}

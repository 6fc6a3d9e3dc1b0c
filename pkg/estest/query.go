package estest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

type hit struct {
	index     string
	id        string
	score     float64
	source    map[string]any
	highlight map[string][]string
}

type searchBody struct {
	Query     json.RawMessage `json:"query"`
	From      int             `json:"from"`
	Size      *int            `json:"size"`
	Sort      json.RawMessage `json:"sort"`
	Source    json.RawMessage `json:"_source"`
	Highlight *highlightBody  `json:"highlight"`
}

type highlightBody struct {
	Fields   json.RawMessage `json:"fields"`
	PreTags  []string        `json:"pre_tags"`
	PostTags []string        `json:"post_tags"`
}

// matching must be called with mu held. Hits come back in insertion order
// with their relevance score.
func (c *Cluster) matching(index string, raw json.RawMessage) []hit {
	idx, ok := c.indices[index]
	if !ok {
		return nil
	}

	var q map[string]json.RawMessage
	if len(raw) > 0 && string(raw) != "null" {
		_ = json.Unmarshal(raw, &q)
	}

	hits := make([]hit, 0, len(idx.order))
	for _, id := range idx.order {
		d := idx.docs[id]
		matched, score := evaluate(q, d)
		if !matched {
			continue
		}
		hits = append(hits, hit{index: index, id: d.id, score: score, source: cloneSource(d.source)})
	}
	return hits
}

// evaluate reports whether d satisfies q and its score. An empty query
// matches everything.
func evaluate(q map[string]json.RawMessage, d *document) (bool, float64) {
	if len(q) == 0 {
		return true, 1
	}
	for kind, body := range q {
		switch kind {
		case "match_all":
			return true, 1
		case "match_none":
			return false, 0
		case "ids":
			var v struct {
				Values []string `json:"values"`
			}
			_ = json.Unmarshal(body, &v)
			for _, id := range v.Values {
				if id == d.id {
					return true, 1
				}
			}
			return false, 0
		case "exists":
			var v struct {
				Field string `json:"field"`
			}
			_ = json.Unmarshal(body, &v)
			_, ok := lookupField(d.source, v.Field)
			return ok, 1
		case "term":
			field, value := fieldClause(body, "value")
			return matchesTerm(d.source, field, value), 1
		case "terms":
			var v map[string]json.RawMessage
			_ = json.Unmarshal(body, &v)
			for field, rawValues := range v {
				if field == "boost" {
					continue
				}
				var values []any
				_ = json.Unmarshal(rawValues, &values)
				for _, value := range values {
					if matchesTerm(d.source, field, value) {
						return true, 1
					}
				}
			}
			return false, 0
		case "match", "match_phrase":
			field, value := fieldClause(body, "query")
			n := matchTokens(d.source, field, fmt.Sprint(value))
			return n > 0, float64(n)
		case "range":
			return matchesRange(body, d.source), 1
		case "bool":
			return evaluateBool(body, d)
		}
	}
	return false, 0
}

func evaluateBool(body json.RawMessage, d *document) (bool, float64) {
	var b struct {
		Must               json.RawMessage `json:"must"`
		Filter             json.RawMessage `json:"filter"`
		Should             json.RawMessage `json:"should"`
		MustNot            json.RawMessage `json:"must_not"`
		MinimumShouldMatch json.RawMessage `json:"minimum_should_match"`
	}
	_ = json.Unmarshal(body, &b)

	score := 0.0
	for _, q := range clauses(b.Must) {
		ok, s := evaluate(q, d)
		if !ok {
			return false, 0
		}
		score += s
	}
	for _, q := range clauses(b.Filter) {
		if ok, _ := evaluate(q, d); !ok {
			return false, 0
		}
	}
	for _, q := range clauses(b.MustNot) {
		if ok, _ := evaluate(q, d); ok {
			return false, 0
		}
	}

	should := clauses(b.Should)
	matchedShould := 0
	for _, q := range should {
		if ok, s := evaluate(q, d); ok {
			matchedShould++
			score += s
		}
	}

	minShould := 0
	if len(should) > 0 && len(clauses(b.Must)) == 0 && len(clauses(b.Filter)) == 0 {
		minShould = 1
	}
	if len(b.MinimumShouldMatch) > 0 {
		if n, err := strconv.Atoi(strings.Trim(string(b.MinimumShouldMatch), `"`)); err == nil {
			minShould = n
		}
	}
	if matchedShould < minShould {
		return false, 0
	}
	if score == 0 {
		score = 1
	}
	return true, score
}

// clauses accepts both a single query object and an array of them.
func clauses(raw json.RawMessage) []map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var many []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one map[string]json.RawMessage
	if err := json.Unmarshal(raw, &one); err == nil {
		return []map[string]json.RawMessage{one}
	}
	return nil
}

// fieldClause decodes both {"field": value} and {"field": {key: value}}.
func fieldClause(body json.RawMessage, key string) (string, any) {
	var v map[string]json.RawMessage
	_ = json.Unmarshal(body, &v)
	for field, raw := range v {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err == nil {
			return field, obj[key]
		}
		var value any
		_ = json.Unmarshal(raw, &value)
		return field, value
	}
	return "", nil
}

func lookupField(source map[string]any, path string) (any, bool) {
	if v, ok := source[path]; ok {
		return v, true
	}
	var cur any = source
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func fieldValues(source map[string]any, field string) []any {
	v, ok := lookupField(source, strings.TrimSuffix(field, ".keyword"))
	if !ok || v == nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

func matchesTerm(source map[string]any, field string, value any) bool {
	want := fmt.Sprint(value)
	for _, v := range fieldValues(source, field) {
		if fmt.Sprint(v) == want {
			return true
		}
	}
	return false
}

func matchTokens(source map[string]any, field, query string) int {
	want := make(map[string]struct{})
	for _, t := range tokenize(query) {
		want[t] = struct{}{}
	}
	n := 0
	for _, v := range fieldValues(source, field) {
		for _, t := range tokenize(fmt.Sprint(v)) {
			if _, ok := want[t]; ok {
				n++
			}
		}
	}
	return n
}

func matchesRange(body json.RawMessage, source map[string]any) bool {
	var v map[string]map[string]any
	_ = json.Unmarshal(body, &v)
	for field, bounds := range v {
		values := fieldValues(source, field)
		if len(values) == 0 {
			return false
		}
		x, ok := toFloat(values[0])
		if !ok {
			return false
		}
		for op, bound := range bounds {
			b, ok := toFloat(bound)
			if !ok {
				continue
			}
			switch op {
			case "gt":
				if !(x > b) {
					return false
				}
			case "gte":
				if !(x >= b) {
					return false
				}
			case "lt":
				if !(x < b) {
					return false
				}
			case "lte":
				if !(x <= b) {
					return false
				}
			}
		}
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

type sortKey struct {
	field string
	desc  bool
}

// parseSort accepts "field", {"field": "desc"} and {"field": {"order": "desc"}},
// alone or in an array.
func parseSort(raw json.RawMessage) []sortKey {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		items = []json.RawMessage{raw}
	}

	var keys []sortKey
	for _, item := range items {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			keys = append(keys, sortKey{field: name, desc: name == "_score"})
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		for field, spec := range obj {
			var order string
			if err := json.Unmarshal(spec, &order); err != nil {
				var o struct {
					Order string `json:"order"`
				}
				_ = json.Unmarshal(spec, &o)
				order = o.Order
			}
			keys = append(keys, sortKey{field: field, desc: strings.EqualFold(order, "desc")})
		}
	}
	return keys
}

func sortHits(hits []hit, raw json.RawMessage) {
	keys := parseSort(raw)
	if len(keys) == 0 {
		keys = []sortKey{{field: "_score", desc: true}}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		for _, k := range keys {
			c := compareHits(hits[i], hits[j], k.field)
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareHits(a, b hit, field string) int {
	if field == "_score" {
		return compareFloat(a.score, b.score)
	}
	if field == "_id" {
		return strings.Compare(a.id, b.id)
	}
	av, bv := fieldValues(a.source, field), fieldValues(b.source, field)
	switch {
	case len(av) == 0 && len(bv) == 0:
		return 0
	case len(av) == 0:
		return -1
	case len(bv) == 0:
		return 1
	}
	af, aok := toFloat(av[0])
	bf, bok := toFloat(bv[0])
	if aok && bok {
		return compareFloat(af, bf)
	}
	return strings.Compare(fmt.Sprint(av[0]), fmt.Sprint(bv[0]))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func paginate(hits []hit, from, size int) (page, rest []hit) {
	if from > len(hits) {
		from = len(hits)
	}
	end := from + size
	if size < 0 || end > len(hits) {
		end = len(hits)
	}
	return hits[from:end], hits[end:]
}

// project keeps only the listed fields; an empty list keeps everything.
func project(source map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return cloneSource(source)
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := lookupField(source, f); ok {
			out[f] = v
		}
	}
	return out
}

func projectHits(hits []hit, raw json.RawMessage) []hit {
	if len(raw) == 0 {
		return hits
	}
	var fields []string
	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err == nil {
		if !enabled {
			for i := range hits {
				hits[i].source = nil
			}
		}
		return hits
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		var obj struct {
			Includes []string `json:"includes"`
		}
		_ = json.Unmarshal(raw, &obj)
		fields = obj.Includes
	}
	for i := range hits {
		hits[i].source = project(hits[i].source, fields)
	}
	return hits
}

func highlightHits(hits []hit, h *highlightBody, query json.RawMessage) []hit {
	if h == nil {
		return hits
	}
	fields := highlightFields(h.Fields)
	if len(fields) == 0 {
		return hits
	}
	pre, post := "<em>", "</em>"
	if len(h.PreTags) > 0 {
		pre = h.PreTags[0]
	}
	if len(h.PostTags) > 0 {
		post = h.PostTags[0]
	}

	terms := make(map[string]struct{})
	collectTerms(query, terms)

	for i := range hits {
		for _, f := range fields {
			for _, v := range fieldValues(hits[i].source, f) {
				s, ok := v.(string)
				if !ok {
					continue
				}
				if frag, marked := mark(s, terms, pre, post); marked {
					if hits[i].highlight == nil {
						hits[i].highlight = make(map[string][]string)
					}
					hits[i].highlight[f] = append(hits[i].highlight[f], frag)
				}
			}
		}
	}
	return hits
}

func highlightFields(raw json.RawMessage) []string {
	var out []string
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for f := range obj {
			out = append(out, f)
		}
	} else {
		var list []map[string]json.RawMessage
		_ = json.Unmarshal(raw, &list)
		for _, m := range list {
			for f := range m {
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out
}

// collectTerms gathers the tokens of every term and match clause in a query.
func collectTerms(raw json.RawMessage, terms map[string]struct{}) {
	var q map[string]json.RawMessage
	if err := json.Unmarshal(raw, &q); err != nil {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err == nil {
			for _, item := range list {
				collectTerms(item, terms)
			}
		}
		return
	}
	for kind, body := range q {
		switch kind {
		case "term":
			_, v := fieldClause(body, "value")
			terms[strings.ToLower(fmt.Sprint(v))] = struct{}{}
		case "match", "match_phrase":
			_, v := fieldClause(body, "query")
			for _, t := range tokenize(fmt.Sprint(v)) {
				terms[t] = struct{}{}
			}
		case "bool":
			var b map[string]json.RawMessage
			_ = json.Unmarshal(body, &b)
			for clause, inner := range b {
				if clause != "must_not" {
					collectTerms(inner, terms)
				}
			}
		}
	}
}

func mark(s string, terms map[string]struct{}, pre, post string) (string, bool) {
	words := strings.Fields(s)
	marked := false
	for i, w := range words {
		key := strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if _, ok := terms[key]; ok && key != "" {
			words[i] = pre + w + post
			marked = true
		}
	}
	return strings.Join(words, " "), marked
}

func searchResponse(index string, total int, page []hit) map[string]any {
	items := make([]map[string]any, 0, len(page))
	var maxScore any
	for _, h := range page {
		item := map[string]any{
			"_index": index,
			"_id":    h.id,
			"_score": h.score,
		}
		if h.source != nil {
			item["_source"] = h.source
		}
		if h.highlight != nil {
			item["highlight"] = h.highlight
		}
		items = append(items, item)
		if m, ok := maxScore.(float64); !ok || h.score > m {
			maxScore = h.score
		}
	}
	return map[string]any{
		"took":      1,
		"timed_out": false,
		"_shards":   map[string]any{"total": 1, "successful": 1, "skipped": 0, "failed": 0},
		"hits": map[string]any{
			"total":     map[string]any{"value": total, "relation": "eq"},
			"max_score": maxScore,
			"hits":      items,
		},
	}
}

var (
	assignParam   = regexp.MustCompile(`^ctx\._source\.([\w.]+)\s*(\+?=)\s*params\.(\w+)$`)
	assignLiteral = regexp.MustCompile(`^ctx\._source\.([\w.]+)\s*=\s*'([^']*)'$`)
)

// applyScript runs the assignment statements the fake understands:
// ctx._source.f = params.p, ctx._source.f += params.p and
// ctx._source.f = 'literal'.
func applyScript(source map[string]any, script string, params map[string]any) {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if m := assignParam.FindStringSubmatch(stmt); m != nil {
			value := params[m[3]]
			if m[2] == "+=" {
				cur, _ := toFloat(source[m[1]])
				add, _ := toFloat(value)
				value = cur + add
			}
			source[m[1]] = value
			continue
		}
		if m := assignLiteral.FindStringSubmatch(stmt); m != nil {
			source[m[1]] = m[2]
		}
	}
}

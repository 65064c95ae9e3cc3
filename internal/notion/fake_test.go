package notion

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// fakeNotion is an in-memory Notion API covering databases, queries and
// page writes
type fakeNotion struct {
	mu        sync.Mutex
	schemas   map[string][]string // database id -> property names
	pages     []*fakePage
	pageSize  int // server-side cap on query results
	nextID    int
	requests  map[string]int // "METHOD /path" counts
	lastProps map[string]any // properties of the last write
	failWrite *apiErrorBody  // returned for every page write when set
}

type fakePage struct {
	ID    string
	DB    string
	Props map[string]any
}

type apiErrorBody struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newFakeNotion(t *testing.T) (*fakeNotion, *httptest.Server) {
	t.Helper()
	f := &fakeNotion{
		schemas:  make(map[string][]string),
		pageSize: 100,
		requests: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/databases/{id}", f.retrieve)
	mux.HandleFunc("POST /v1/databases/{id}/query", f.query)
	mux.HandleFunc("POST /v1/pages", f.create)
	mux.HandleFunc("PATCH /v1/pages/{id}", f.update)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Notion-Version") != Version || r.Header.Get("Authorization") != "Bearer secret" {
			writeJSON(w, http.StatusUnauthorized, apiErrorBody{Status: 401, Code: "unauthorized", Message: "bad auth"})
			return
		}
		f.mu.Lock()
		f.requests[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Options{
		Token:      "secret",
		BaseURL:    srv.URL + "/v1",
		HTTPClient: srv.Client(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeNotion) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[key]
}

func (f *fakeNotion) last() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastProps
}

func (f *fakeNotion) pagesIn(db string) []*fakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakePage
	for _, p := range f.pages {
		if p.DB == db {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeNotion) addPage(db string, props map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("page-%d", f.nextID)
	f.pages = append(f.pages, &fakePage{ID: id, DB: db, Props: props})
	return id
}

func (f *fakeNotion) retrieve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	names, ok := f.schemas[id]
	f.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, apiErrorBody{Status: 404, Code: "object_not_found", Message: "Could not find database"})
		return
	}
	props := make(map[string]any, len(names))
	for i, n := range names {
		props[n] = map[string]any{"id": strconv.Itoa(i), "type": "rich_text"}
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "properties": props})
}

func (f *fakeNotion) query(w http.ResponseWriter, r *http.Request) {
	db := r.PathValue("id")
	var body struct {
		Filter      map[string]any `json:"filter"`
		StartCursor string         `json:"start_cursor"`
		PageSize    int            `json:"page_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, apiErrorBody{Status: 400, Code: "invalid_json", Message: err.Error()})
		return
	}

	var matched []*fakePage
	for _, p := range f.pagesIn(db) {
		if matches(p, body.Filter) {
			matched = append(matched, p)
		}
	}

	start := 0
	if body.StartCursor != "" {
		start, _ = strconv.Atoi(body.StartCursor)
	}
	size := min(f.pageSize, max(body.PageSize, 1))
	end := min(start+size, len(matched))

	results := make([]any, 0, end-start)
	for _, p := range matched[start:end] {
		results = append(results, map[string]any{"id": p.ID, "properties": renderProps(p.Props)})
	}
	resp := map[string]any{"results": results, "has_more": end < len(matched), "next_cursor": nil}
	if end < len(matched) {
		resp["next_cursor"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (f *fakeNotion) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Parent     map[string]string `json:"parent"`
		Properties map[string]any    `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, apiErrorBody{Status: 400, Code: "invalid_json", Message: err.Error()})
		return
	}
	if f.writeFailure(w, body.Properties) {
		return
	}
	id := f.addPage(body.Parent["database_id"], body.Properties)
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (f *fakeNotion) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Properties map[string]any `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, apiErrorBody{Status: 400, Code: "invalid_json", Message: err.Error()})
		return
	}
	if f.writeFailure(w, body.Properties) {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pages {
		if p.ID == id {
			for k, v := range body.Properties {
				p.Props[k] = v
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": id})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, apiErrorBody{Status: 404, Code: "object_not_found", Message: "Could not find page"})
}

func (f *fakeNotion) writeFailure(w http.ResponseWriter, props map[string]any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastProps = props
	if f.failWrite != nil {
		writeJSON(w, f.failWrite.Status, f.failWrite)
		return true
	}
	return false
}

// matches evaluates the subset of Notion filters the tables use
func matches(p *fakePage, filter map[string]any) bool {
	if filter == nil {
		return true
	}
	name, _ := filter["property"].(string)
	prop, _ := p.Props[name].(map[string]any)
	if prop == nil {
		return false
	}

	switch {
	case filter["rich_text"] != nil:
		want := filter["rich_text"].(map[string]any)["equals"]
		return plainText(prop["rich_text"]) == want
	case filter["title"] != nil:
		want := filter["title"].(map[string]any)["equals"]
		return plainText(prop["title"]) == want
	case filter["date"] != nil:
		cond := filter["date"].(map[string]any)
		start := dateStart(prop)
		if v, ok := cond["equals"].(string); ok {
			return start == v
		}
		if v, ok := cond["on_or_after"].(string); ok {
			return start >= v
		}
	}
	return false
}

func plainText(v any) string {
	parts, _ := v.([]any)
	s := ""
	for _, part := range parts {
		m, _ := part.(map[string]any)
		text, _ := m["text"].(map[string]any)
		content, _ := text["content"].(string)
		s += content
	}
	return s
}

func dateStart(prop map[string]any) string {
	d, _ := prop["date"].(map[string]any)
	start, _ := d["start"].(string)
	if len(start) > 10 {
		start = start[:10]
	}
	return start
}

// renderProps adds plain_text to text properties as Notion does on reads
func renderProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for name, v := range props {
		prop, _ := v.(map[string]any)
		rendered := map[string]any{}
		for key, val := range prop {
			if key == "title" || key == "rich_text" {
				rendered["type"] = key
				rendered[key] = []any{map[string]any{"plain_text": plainText(val)}}
				continue
			}
			rendered[key] = val
		}
		out[name] = rendered
	}
	return out
}

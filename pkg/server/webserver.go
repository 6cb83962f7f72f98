package server

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matst80/slask-browser/pkg/common"
	"github.com/matst80/slask-browser/pkg/common/jsoncompat"
	"github.com/matst80/slask-browser/pkg/index"
	"github.com/matst80/slask-browser/pkg/messaging"
	"github.com/matst80/slask-browser/pkg/search"
	"github.com/matst80/slask-browser/pkg/storage"
	"github.com/matst80/slask-browser/pkg/types"
)

var (
	filterRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskbrowser_filter_requests_total",
		Help: "The number of record filter requests served",
	})
	selectionMutations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskbrowser_selection_mutations_total",
		Help: "The number of selection mutation requests served",
	})
)

// BrowserWebServer exposes the filter engine over HTTP. The engine owns all
// state; the server only translates requests and renders responses.
type BrowserWebServer struct {
	Engine    *index.Engine
	Navigator *search.Navigator
	Cache     *Cache
	Storage   *storage.DiskStorage
	Auth      *TokenAuth
	Broadcast *messaging.Broadcaster
}

type recordsResponse struct {
	Total   int            `json:"total"`
	Records []types.Record `json:"records"`
}

// HandleRecords serves the filtered record list, in original collection
// order. Requests carrying explicit filters are evaluated statelessly;
// otherwise the engine's current selection applies.
func (ws *BrowserWebServer) HandleRecords(w http.ResponseWriter, r *http.Request) (any, error) {
	filterRequests.Inc()
	req := NewFilterRequest()
	if err := GetFilterQueryFromRequest(r, req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return nil, err
	}
	defaultHeaders(w, r, true, "120")

	if req.Filters.IsEmpty() {
		records := ws.Engine.ApplyFilters(req.Query)
		return recordsResponse{Total: len(records), Records: records}, nil
	}

	cacheKey := ""
	if ws.Cache != nil && r.Method == http.MethodGet {
		cacheKey = "records:" + r.URL.RawQuery
		var cached recordsResponse
		if err := ws.Cache.Get(r.Context(), cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	hits := ws.Engine.Match(req.Filters)
	all := ws.Engine.Records()
	records := make([]types.Record, 0, hits.GetCardinality())
	it := hits.Iterator()
	for it.HasNext() {
		record := all[it.Next()]
		if record.MatchesQuery(req.Query) {
			records = append(records, record)
		}
	}
	resp := recordsResponse{Total: len(records), Records: records}
	if cacheKey != "" {
		if err := ws.Cache.Set(r.Context(), cacheKey, resp, 2*time.Minute); err != nil {
			log.Printf("failed to cache records response: %v", err)
		}
	}
	return resp, nil
}

func (ws *BrowserWebServer) HandleFacets(w http.ResponseWriter, r *http.Request) (any, error) {
	defaultHeaders(w, r, true, "60")
	return BuildFacetsResponse(ws.Engine), nil
}

func (ws *BrowserWebServer) HandleCount(w http.ResponseWriter, r *http.Request) (any, error) {
	query := r.URL.Query()
	key := query.Get("key")
	value := query.Get("value")
	publicHeaders(w, r, true, "300")
	return map[string]int{"count": ws.Engine.Count(key, value)}, nil
}

func (ws *BrowserWebServer) HandleToggle(w http.ResponseWriter, r *http.Request) (any, error) {
	selectionMutations.Inc()
	query := r.URL.Query()
	key := query.Get("key")
	value := query.Get("value")
	if key == "" || value == "" {
		w.WriteHeader(http.StatusBadRequest)
		return nil, fmt.Errorf("toggle requires key and value")
	}
	genericHeaders(w, r, true)
	selected := ws.Engine.Selection().Toggle(key, value)
	return map[string]bool{"selected": selected}, nil
}

func (ws *BrowserWebServer) HandleSelectGroup(w http.ResponseWriter, r *http.Request) (any, error) {
	selectionMutations.Inc()
	genericHeaders(w, r, true)
	added := ws.Engine.Selection().SelectAllInGroup(r.URL.Query().Get("key"))
	return map[string]any{"added": added}, nil
}

func (ws *BrowserWebServer) HandleClearGroup(w http.ResponseWriter, r *http.Request) (any, error) {
	selectionMutations.Inc()
	genericHeaders(w, r, true)
	removed := ws.Engine.Selection().ClearGroup(r.URL.Query().Get("key"))
	return map[string]any{"removed": removed}, nil
}

func (ws *BrowserWebServer) HandleSelectUnder(w http.ResponseWriter, r *http.Request) (any, error) {
	selectionMutations.Inc()
	query := r.URL.Query()
	genericHeaders(w, r, true)
	added := ws.Engine.Selection().SelectAllUnder(query.Get("key"), query.Get("path"))
	return map[string]any{"added": added}, nil
}

func (ws *BrowserWebServer) HandleClearUnder(w http.ResponseWriter, r *http.Request) (any, error) {
	selectionMutations.Inc()
	query := r.URL.Query()
	genericHeaders(w, r, true)
	removed := ws.Engine.Selection().ClearUnder(query.Get("key"), query.Get("path"))
	return map[string]any{"removed": removed}, nil
}

func (ws *BrowserWebServer) HandleReset(w http.ResponseWriter, r *http.Request) (any, error) {
	selectionMutations.Inc()
	genericHeaders(w, r, true)
	ws.Engine.Selection().Reset()
	ws.Navigator.Clear()
	return map[string]bool{"ok": true}, nil
}

type matchJson struct {
	Label string `json:"label"`
	Id    string `json:"id"`
	Group string `json:"group"`
	Path  string `json:"path,omitempty"`
}

type searchResponse struct {
	State   string      `json:"state"`
	Query   string      `json:"query"`
	Current int         `json:"current"`
	Matches []matchJson `json:"matches"`
}

func stateName(s search.State) string {
	switch s {
	case search.Searching:
		return "searching"
	case search.Navigating:
		return "navigating"
	default:
		return "idle"
	}
}

func (ws *BrowserWebServer) searchResponse() searchResponse {
	matches := ws.Navigator.Matches()
	ret := searchResponse{
		State:   stateName(ws.Navigator.State()),
		Query:   ws.Navigator.Query(),
		Current: ws.Navigator.CurrentIndex(),
		Matches: make([]matchJson, len(matches)),
	}
	for i, m := range matches {
		ret.Matches[i] = matchJson{Label: m.Label, Id: string(m.Id), Group: m.GroupKey, Path: m.Path}
	}
	return ret
}

func (ws *BrowserWebServer) HandleSearch(w http.ResponseWriter, r *http.Request) (any, error) {
	genericHeaders(w, r, true)
	ws.Navigator.Search(r.URL.Query().Get("query"))
	return ws.searchResponse(), nil
}

func (ws *BrowserWebServer) HandleNavigate(w http.ResponseWriter, r *http.Request) (any, error) {
	genericHeaders(w, r, true)
	dir := search.Next
	if r.URL.Query().Get("dir") == "prev" {
		dir = search.Prev
	}
	ws.Navigator.Navigate(dir)
	return ws.searchResponse(), nil
}

func (ws *BrowserWebServer) HandleCommit(w http.ResponseWriter, r *http.Request) (any, error) {
	genericHeaders(w, r, true)
	selected, ok := ws.Navigator.Commit()
	return map[string]bool{"ok": ok, "selected": selected}, nil
}

func (ws *BrowserWebServer) HandleClearSearch(w http.ResponseWriter, r *http.Request) (any, error) {
	genericHeaders(w, r, true)
	ws.Navigator.Clear()
	return ws.searchResponse(), nil
}

// HandleChanges streams a server sent event every time the debounced
// "filters changed" signal fires, until the client goes away.
func (ws *BrowserWebServer) HandleChanges(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	changes := make(chan struct{}, 1)
	subId := ws.Engine.Subscribe(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer ws.Engine.Unsubscribe(subId)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-changes:
			fmt.Fprint(w, "event: filters\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}

func (ws *BrowserWebServer) HandleReload(w http.ResponseWriter, r *http.Request) (any, error) {
	records, err := ws.Storage.LoadRecords()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return nil, err
	}
	ws.Engine.LoadRecords(records)
	if ws.Cache != nil {
		ws.Cache.Invalidate()
	}
	if ws.Broadcast != nil {
		if err := ws.Broadcast.Reloaded(); err != nil {
			log.Printf("failed to announce reload: %v", err)
		}
	}
	log.Printf("reloaded %d records", len(records))
	return map[string]int{"records": len(records)}, nil
}

// HandleUpsertRecords ingests a JSON batch, applies it locally and announces
// it so peer instances apply the same batch.
func (ws *BrowserWebServer) HandleUpsertRecords(w http.ResponseWriter, r *http.Request) (any, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return nil, err
	}
	var records []types.Record
	if err := jsoncompat.Unmarshal(body, &records); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return nil, err
	}
	if len(records) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return nil, fmt.Errorf("empty record batch")
	}
	ws.Engine.UpsertRecords(records)
	if ws.Cache != nil {
		ws.Cache.Invalidate()
	}
	if ws.Broadcast != nil {
		if err := ws.Broadcast.RecordsChanged(records); err != nil {
			log.Printf("failed to announce record upsert: %v", err)
		}
	}
	return map[string]int{"records": len(records)}, nil
}

// HandleSave persists the snapshot and tells peers to reload it.
func (ws *BrowserWebServer) HandleSave(w http.ResponseWriter, r *http.Request) (any, error) {
	records := ws.Engine.Records()
	if err := ws.Storage.SaveRecords(records); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return nil, err
	}
	if ws.Broadcast != nil {
		if err := ws.Broadcast.Reloaded(); err != nil {
			log.Printf("failed to announce reload: %v", err)
		}
	}
	return map[string]int{"records": len(records)}, nil
}

// SetupMux mounts every endpoint on the mux.
func (ws *BrowserWebServer) SetupMux(mux *http.ServeMux) {
	mux.HandleFunc("/api/records", common.JsonHandler(ws.HandleRecords))
	mux.HandleFunc("/api/facets", common.JsonHandler(ws.HandleFacets))
	mux.HandleFunc("/api/count", common.JsonHandler(ws.HandleCount))
	mux.HandleFunc("POST /api/toggle", common.JsonHandler(ws.HandleToggle))
	mux.HandleFunc("POST /api/group/select", common.JsonHandler(ws.HandleSelectGroup))
	mux.HandleFunc("POST /api/group/clear", common.JsonHandler(ws.HandleClearGroup))
	mux.HandleFunc("POST /api/under/select", common.JsonHandler(ws.HandleSelectUnder))
	mux.HandleFunc("POST /api/under/clear", common.JsonHandler(ws.HandleClearUnder))
	mux.HandleFunc("POST /api/reset", common.JsonHandler(ws.HandleReset))
	mux.HandleFunc("/api/search", common.JsonHandler(ws.HandleSearch))
	mux.HandleFunc("POST /api/navigate", common.JsonHandler(ws.HandleNavigate))
	mux.HandleFunc("POST /api/search/commit", common.JsonHandler(ws.HandleCommit))
	mux.HandleFunc("POST /api/search/clear", common.JsonHandler(ws.HandleClearSearch))
	mux.HandleFunc("/api/changes", ws.HandleChanges)
	mux.HandleFunc("POST /admin/records", ws.Auth.Middleware(common.JsonHandler(ws.HandleUpsertRecords)))
	mux.HandleFunc("POST /admin/reload", ws.Auth.Middleware(common.JsonHandler(ws.HandleReload)))
	mux.HandleFunc("POST /admin/save", ws.Auth.Middleware(common.JsonHandler(ws.HandleSave)))
	mux.Handle("/metrics", promhttp.Handler())
}

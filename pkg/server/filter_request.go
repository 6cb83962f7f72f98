package server

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/schema"

	"github.com/matst80/slask-browser/pkg/common/jsoncompat"
	"github.com/matst80/slask-browser/pkg/facet"
	"github.com/matst80/slask-browser/pkg/types"
)

// FilterRequest is a stateless filter query. GET requests carry the filters
// as repeated "str" and "under" params, POST requests as a JSON body.
type FilterRequest struct {
	*types.Filters
	Query string `json:"query" schema:"query"`
}

func NewFilterRequest() *FilterRequest {
	return &FilterRequest{Filters: &types.Filters{}}
}

func GetFilterQueryFromRequest(r *http.Request, result *FilterRequest) error {
	if r.Method == http.MethodGet {
		return filterQueryFromRequestQuery(r.URL.Query(), result)
	}
	return filterQueryFromBody(r, result)
}

func filterQueryFromBody(r *http.Request, result *FilterRequest) error {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return jsoncompat.Unmarshal(body, result)
}

// decodeFiltersFromRequest parses the compact GET form:
//
//	str=scene:kitchen         one value
//	str=robot:arm1||arm2      any of several values
//	under=object:tools>drill  subtree constraint on a tree facet
func decodeFiltersFromRequest(query url.Values, result *FilterRequest) {
	for _, v := range query["str"] {
		key, value, found := strings.Cut(v, ":")
		if !found || value == "" {
			continue
		}
		for _, part := range strings.Split(value, "||") {
			if part != "" {
				result.Filters.Add(key, part)
			}
		}
	}
	for _, v := range query["under"] {
		key, joined, found := strings.Cut(v, ":")
		if !found || joined == "" {
			continue
		}
		result.Filters.PathFilter = append(result.Filters.PathFilter, types.PathFilter{
			Key:  key,
			Path: strings.Split(joined, facet.PathSeparator),
		})
	}
}

func filterQueryFromRequestQuery(query url.Values, result *FilterRequest) error {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(result, query); err != nil {
		return err
	}
	decodeFiltersFromRequest(query, result)
	return nil
}

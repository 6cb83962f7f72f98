package server

import (
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
)

func TestFilterRequestFromQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/records?query=pick&str=scene:kitchen&str=robot:arm1||arm2&under=object:tools>drill", nil)
	req := NewFilterRequest()
	if err := GetFilterQueryFromRequest(r, req); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if req.Query != "pick" {
		t.Errorf("query: expected pick, got %q", req.Query)
	}
	if len(req.Filters.StringFilter) != 2 {
		t.Fatalf("expected 2 string filter groups, got %v", req.Filters.StringFilter)
	}
	if req.Filters.StringFilter[0].Key != "scene" || req.Filters.StringFilter[0].Values[0] != "kitchen" {
		t.Errorf("unexpected first group: %v", req.Filters.StringFilter[0])
	}
	if !slices.Equal(req.Filters.StringFilter[1].Values, []string{"arm1", "arm2"}) {
		t.Errorf("|| separated values: expected [arm1 arm2], got %v", req.Filters.StringFilter[1].Values)
	}
	if len(req.Filters.PathFilter) != 1 || !slices.Equal(req.Filters.PathFilter[0].Path, []string{"tools", "drill"}) {
		t.Errorf("unexpected path filter: %v", req.Filters.PathFilter)
	}
}

func TestFilterRequestIgnoresMalformedParams(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/records?str=nocolon&str=scene:&under=novalue:", nil)
	req := NewFilterRequest()
	if err := GetFilterQueryFromRequest(r, req); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !req.Filters.IsEmpty() {
		t.Errorf("malformed params must be skipped, got %+v", req.Filters)
	}
}

func TestFilterRequestFromBody(t *testing.T) {
	body := `{"query":"sort","string":[{"key":"scene","values":["garage"]}]}`
	r := httptest.NewRequest("POST", "/api/records", strings.NewReader(body))
	req := NewFilterRequest()
	if err := GetFilterQueryFromRequest(r, req); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if req.Query != "sort" {
		t.Errorf("query: expected sort, got %q", req.Query)
	}
	if len(req.Filters.StringFilter) != 1 || req.Filters.StringFilter[0].Key != "scene" {
		t.Errorf("unexpected filters: %+v", req.Filters)
	}
}

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQueryReader_Int(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/markets?limit=25&offset=junk", nil)
	q := newQueryReader(r)

	if got := q.Int("limit"); got != 25 {
		t.Errorf("Expected 25, got %d", got)
	}
	if got := q.Int("missing"); got != 0 {
		t.Errorf("Expected 0 for absent param, got %d", got)
	}
	if q.Err() != nil {
		t.Fatalf("Expected no error yet, got %v", q.Err())
	}

	q.Int("offset")
	if q.Err() == nil {
		t.Fatal("Expected error for malformed int")
	}
}

func TestQueryReader_Bool(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/markets?active=true&closed=false", nil)
	q := newQueryReader(r)

	active := q.Bool("active")
	if active == nil || !*active {
		t.Error("Expected active=true")
	}
	closed := q.Bool("closed")
	if closed == nil || *closed {
		t.Error("Expected closed=false")
	}
	if q.Bool("archived") != nil {
		t.Error("Expected nil for absent bool")
	}
	if q.Err() != nil {
		t.Errorf("Expected no error, got %v", q.Err())
	}
}

func TestQueryReader_FirstErrorWins(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/markets?limit=x&offset=y", nil)
	q := newQueryReader(r)

	q.Int("limit")
	first := q.Err()
	q.Int("offset")

	if q.Err() != first {
		t.Error("Expected the first parse error to be kept")
	}
}

func TestBypassOptions(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantBypass bool
	}{
		{"no header", "", false},
		{"no-cache alone", "no-cache", true},
		{"no-cache among directives", "max-age=0, no-cache", true},
		{"no-store is not a bypass", "no-store", false},
		{"prefix does not match", "no-cache-x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/markets", nil)
			if tt.header != "" {
				r.Header.Set("Cache-Control", tt.header)
			}
			opts := bypassOptions(r)
			if got := len(opts) == 1; got != tt.wantBypass {
				t.Errorf("Expected bypass=%v, got %d options", tt.wantBypass, len(opts))
			}
		})
	}
}

package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jshsmth/glitch-markets-sub000/internal/service"
)

// queryReader pulls typed values out of the query string, remembering
// the first malformed parameter so handlers can reject the request
// before any cache or upstream work.
type queryReader struct {
	values url.Values
	err    error
}

func newQueryReader(r *http.Request) *queryReader {
	return &queryReader{values: r.URL.Query()}
}

func (q *queryReader) String(name string) string {
	return q.values.Get(name)
}

func (q *queryReader) Int(name string) int {
	raw := q.values.Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, raw)
		return 0
	}
	return n
}

// Bool distinguishes absent from explicit so tri-state predicates
// survive the trip through the query string.
func (q *queryReader) Bool(name string) *bool {
	raw := q.values.Get(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, raw)
		return nil
	}
	return &b
}

func (q *queryReader) fail(name, raw string) {
	if q.err == nil {
		q.err = fmt.Errorf("invalid query parameter %s: %q", name, raw)
	}
}

func (q *queryReader) Err() error {
	return q.err
}

// bypassOptions maps the standard no-cache request directive onto the
// per-call cache bypass.
func bypassOptions(r *http.Request) []service.FetchOption {
	cc := r.Header.Get("Cache-Control")
	if cc == "" {
		return nil
	}
	for _, directive := range strings.Split(cc, ",") {
		if strings.TrimSpace(directive) == "no-cache" {
			return []service.FetchOption{service.WithBypassCache()}
		}
	}
	return nil
}

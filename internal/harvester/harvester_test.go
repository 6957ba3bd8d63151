package harvester

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biorag/internal/domain"
)

// catalog serves `pages` full pages of `perPage` tools and then an empty page.
type catalog struct {
	pages   int
	perPage int
	failAt  int
	calls   atomic.Int32
	sizes   []string
}

func (c *catalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.calls.Add(1)
	q := r.URL.Query()
	c.sizes = append(c.sizes, q.Get("page_size"))
	n, _ := strconv.Atoi(q.Get("page"))
	if n == c.failAt {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	list := []map[string]any{}
	if n <= c.pages {
		for i := 0; i < c.perPage; i++ {
			id := fmt.Sprintf("tool-%d-%d", n, i)
			list = append(list, map[string]any{
				"name":        id,
				"biotoolsID":  id,
				"description": "Tool " + id,
			})
		}
	}
	var next any = "?page=" + strconv.Itoa(n+1)
	if n > c.pages {
		next = nil
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count": c.pages * c.perPage,
		"list":  list,
		"next":  next,
	})
}

func newHarvester(url string, maxPages int) *Harvester {
	return New(Config{BaseURL: url, RequestsPerSecond: -1, MaxPages: maxPages})
}

func TestHarvest_TerminatesAfterEmptyPage(t *testing.T) {
	c := &catalog{pages: 3, perPage: 4}
	srv := httptest.NewServer(c)
	defer srv.Close()

	records, stats := newHarvester(srv.URL, 50).Collect(context.Background(), 4)
	assert.Len(t, records, 12)
	assert.Equal(t, int32(4), c.calls.Load(), "P full pages plus one empty page")
	assert.Equal(t, StopEmptyPage, stats.StopReason)
	assert.False(t, stats.Truncated)
	assert.Equal(t, 12, stats.Total)
	assert.Equal(t, "tool-1-0", records[0].IdentityKey)
	assert.Equal(t, "tool-3-3", records[11].IdentityKey)
}

func TestHarvest_StopsWhenNoNextPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1,"next":null,"list":[{"name":"BioPython","biotoolsID":"biopython","description":"Python tools for computational molecular biology"}]}`))
	}))
	defer srv.Close()

	records, stats := newHarvester(srv.URL, 50).Collect(context.Background(), 100)
	require.Len(t, records, 1)
	assert.Equal(t, StopNoNext, stats.StopReason)
	assert.Equal(t, 1, stats.Pages)
}

func TestHarvest_KeepsPagesBeforeFailure(t *testing.T) {
	c := &catalog{pages: 5, perPage: 2, failAt: 2}
	srv := httptest.NewServer(c)
	defer srv.Close()

	records, stats := newHarvester(srv.URL, 50).Collect(context.Background(), 2)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(2), c.calls.Load())
	assert.True(t, stats.Truncated)
	assert.Equal(t, StopTransport, stats.StopReason)
	assert.ErrorIs(t, stats.Err, domain.ErrTransport)
}

func TestHarvest_MalformedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	records, stats := newHarvester(srv.URL, 50).Collect(context.Background(), 10)
	assert.Empty(t, records)
	assert.Equal(t, StopBadPage, stats.StopReason)
	assert.ErrorIs(t, stats.Err, domain.ErrParse)
}

func TestHarvest_PageCeiling(t *testing.T) {
	c := &catalog{pages: 100, perPage: 1}
	srv := httptest.NewServer(c)
	defer srv.Close()

	records, stats := newHarvester(srv.URL, 3).Collect(context.Background(), 1)
	assert.Len(t, records, 3)
	assert.Equal(t, int32(3), c.calls.Load())
	assert.Equal(t, StopMaxPages, stats.StopReason)
	assert.True(t, stats.Truncated)
	assert.NoError(t, stats.Err)
	assert.Equal(t, 100, stats.Total)
}

func TestHarvest_CeilingOnLastPageIsComplete(t *testing.T) {
	c := &catalog{pages: 3, perPage: 1}
	srv := httptest.NewServer(c)
	defer srv.Close()

	records, stats := newHarvester(srv.URL, 3).Collect(context.Background(), 1)
	assert.Len(t, records, 3)
	assert.Equal(t, StopMaxPages, stats.StopReason)
	assert.False(t, stats.Truncated, "every counted tool was read")
}

func TestHarvest_CapsPageSize(t *testing.T) {
	c := &catalog{pages: 1, perPage: 1}
	srv := httptest.NewServer(c)
	defer srv.Close()

	newHarvester(srv.URL, 50).Collect(context.Background(), 500)
	require.NotEmpty(t, c.sizes)
	assert.Equal(t, "100", c.sizes[0])
}

func TestHarvest_SkipsInvalidRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":4,"next":null,"list":[
			{"name":"NoDescription","biotoolsID":"nodesc"},
			"not-an-object",
			{"description":"anonymous"},
			{"name":"Clustal Omega","biotoolsID":"clustalo","description":"Multiple sequence alignment"}
		]}`))
	}))
	defer srv.Close()

	records, stats := newHarvester(srv.URL, 50).Collect(context.Background(), 10)
	require.Len(t, records, 1)
	assert.Equal(t, "clustalo", records[0].IdentityKey)
	assert.Equal(t, 4, stats.Fetched)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 1, stats.Parsed)
}

func TestHarvest_IsLazy(t *testing.T) {
	c := &catalog{pages: 10, perPage: 5}
	srv := httptest.NewServer(c)
	defer srv.Close()

	h := newHarvester(srv.URL, 50)
	var stats Stats
	n := 0
	for range h.Stream(context.Background(), 5, &stats) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, int32(1), c.calls.Load())
	assert.Equal(t, StopConsumer, stats.StopReason)

	// a new call starts over at page 1
	first := true
	for rec := range h.Harvest(context.Background(), 5) {
		if first {
			assert.Equal(t, "tool-1-0", rec.IdentityKey)
			first = false
		}
		break
	}
}

func TestHarvest_RateLimited(t *testing.T) {
	c := &catalog{pages: 2, perPage: 1}
	srv := httptest.NewServer(c)
	defer srv.Close()

	h := New(Config{BaseURL: srv.URL, RequestsPerSecond: 20})
	start := time.Now()
	records, _ := h.Collect(context.Background(), 1)
	assert.Len(t, records, 2)
	// three requests at 20/s need at least two 50ms gaps
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestHarvest_Cancelled(t *testing.T) {
	c := &catalog{pages: 2, perPage: 1}
	srv := httptest.NewServer(c)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records, stats := newHarvester(srv.URL, 50).Collect(ctx, 1)
	assert.Empty(t, records)
	assert.Equal(t, StopCancelled, stats.StopReason)
}

func TestHarvest_SendsCatalogQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"count":0,"list":[],"next":null}`))
	}))
	defer srv.Close()

	h := New(Config{BaseURL: srv.URL + "/api/tool/", Language: "R", RequestsPerSecond: -1, UserAgent: "ua-test"})
	h.Collect(context.Background(), 25)
	require.NotNil(t, got)
	assert.Equal(t, "/api/tool/", got.URL.Path)
	assert.Equal(t, "R", got.URL.Query().Get("language"))
	assert.Equal(t, "1", got.URL.Query().Get("page"))
	assert.Equal(t, "25", got.URL.Query().Get("page_size"))
	assert.Equal(t, "json", got.URL.Query().Get("format"))
	assert.Equal(t, "ua-test", got.Header.Get("User-Agent"))
}

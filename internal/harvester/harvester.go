// Package harvester pulls tool metadata from the bio.tools catalog API.
//
// Pages are fetched strictly in order, one request at a time, with a token
// bucket limiting the request rate. A failed page ends the run but every
// record already yielded stays valid. No page is retried.
package harvester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"biorag/internal/domain"
	"biorag/internal/logging"
)

// MaxPageSize is the largest page the catalog API serves.
const MaxPageSize = 100

// Stop reasons reported in Stats.
const (
	StopNoNext    = "no_next_page"
	StopEmptyPage = "empty_page"
	StopMaxPages  = "max_pages"
	StopTransport = "transport_error"
	StopBadPage   = "malformed_page"
	StopCancelled = "cancelled"
	StopConsumer  = "consumer_stopped"
)

// Config configures a Harvester.
type Config struct {
	BaseURL           string
	Language          string
	PageSize          int
	MaxPages          int
	RequestsPerSecond float64
	Timeout           time.Duration
	UserAgent         string
}

// Stats describes a finished (or stopped) harvest.
type Stats struct {
	Pages      int    `json:"pages"`
	Fetched    int    `json:"fetched"`
	Parsed     int    `json:"parsed"`
	Skipped    int    `json:"skipped"`
	Total      int    `json:"total"`
	Truncated  bool   `json:"truncated"`
	StopReason string `json:"stop_reason"`
	Err        error  `json:"-"`
}

// Option configures optional Harvester behaviour.
type Option func(*Harvester)

// WithLogger sets the logger used for skipped records and page progress.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harvester) { h.logger = l }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Harvester) { h.client = c }
}

// Harvester is a sequential, rate-limited catalog client.
type Harvester struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a harvester. Zero config fields fall back to the catalog defaults.
func New(cfg Config, opts ...Option) *Harvester {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://bio.tools/api/tool/"
	}
	if cfg.Language == "" {
		cfg.Language = "Python"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = MaxPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "biorag-harvester/1.0"
	}
	h := &Harvester{cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = &http.Client{Timeout: cfg.Timeout}
	}
	h.logger = logging.OrNop(h.logger)
	return h
}

// Harvest lazily yields normalized records starting at page 1. Each call
// starts a fresh pagination; the sequence itself is single-use.
// A pageSize of zero uses the configured page size.
func (h *Harvester) Harvest(ctx context.Context, pageSize int) iter.Seq[domain.ToolRecord] {
	return h.Stream(ctx, pageSize, &Stats{})
}

// Stream is Harvest with progress written into stats as pages are consumed.
func (h *Harvester) Stream(ctx context.Context, pageSize int, stats *Stats) iter.Seq[domain.ToolRecord] {
	return func(yield func(domain.ToolRecord) bool) {
		h.run(ctx, pageSize, stats, yield)
	}
}

// Collect drains a harvest into memory.
func (h *Harvester) Collect(ctx context.Context, pageSize int) ([]domain.ToolRecord, Stats) {
	var stats Stats
	var out []domain.ToolRecord
	for rec := range h.Stream(ctx, pageSize, &stats) {
		out = append(out, rec)
	}
	return out, stats
}

type page struct {
	Count int               `json:"count"`
	List  []json.RawMessage `json:"list"`
	Next  *string           `json:"next"`
}

func (h *Harvester) run(ctx context.Context, pageSize int, stats *Stats, yield func(domain.ToolRecord) bool) {
	if pageSize <= 0 {
		pageSize = h.cfg.PageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	limit := rate.Inf
	if h.cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(h.cfg.RequestsPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	stop := func(reason string, err error) {
		stats.StopReason = reason
		stats.Err = err
		stats.Truncated = err != nil
	}

	for pageNum := 1; ; pageNum++ {
		if pageNum > h.cfg.MaxPages {
			h.logger.Warn("page ceiling reached", zap.Int("max_pages", h.cfg.MaxPages))
			stop(StopMaxPages, nil)
			stats.Truncated = stats.Fetched < stats.Total
			return
		}
		if err := limiter.Wait(ctx); err != nil {
			stop(StopCancelled, err)
			return
		}

		p, err := h.fetch(ctx, pageNum, pageSize)
		if err != nil {
			reason := StopTransport
			switch {
			case ctx.Err() != nil:
				reason = StopCancelled
			case errors.Is(err, domain.ErrParse):
				reason = StopBadPage
			}
			h.logger.Warn("page fetch failed, keeping earlier pages",
				zap.Int("page", pageNum), zap.Error(err))
			stop(reason, err)
			return
		}
		stats.Pages++
		if pageNum == 1 {
			stats.Total = p.Count
			h.logger.Info("catalog query", zap.String("language", h.cfg.Language), zap.Int("total", p.Count))
		}
		if len(p.List) == 0 {
			stop(StopEmptyPage, nil)
			return
		}

		for _, raw := range p.List {
			stats.Fetched++
			rec, err := Normalize(raw)
			if err != nil {
				stats.Skipped++
				h.logger.Warn("skipping record", zap.Int("page", pageNum), zap.Error(err))
				continue
			}
			stats.Parsed++
			if !yield(rec) {
				stop(StopConsumer, nil)
				return
			}
		}
		h.logger.Debug("page harvested", zap.Int("page", pageNum), zap.Int("records", len(p.List)))

		if p.Next == nil || *p.Next == "" {
			stop(StopNoNext, nil)
			return
		}
	}
}

func (h *Harvester) fetch(ctx context.Context, pageNum, pageSize int) (*page, error) {
	q := url.Values{}
	q.Set("language", h.cfg.Language)
	q.Set("page", strconv.Itoa(pageNum))
	q.Set("page_size", strconv.Itoa(pageSize))
	q.Set("format", "json")

	u := h.cfg.BaseURL
	if strings.Contains(u, "?") {
		u += "&" + q.Encode()
	} else {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	req.Header.Set("User-Agent", h.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", domain.ErrTransport, pageNum, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: page %d: %s", domain.ErrTransport, pageNum, resp.Status)
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", domain.ErrParse, pageNum, err)
	}
	return &p, nil
}

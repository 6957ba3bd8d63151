package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"biorag/internal/domain"
)

// Storage is a minimal REST client for one Qdrant collection.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Collection returns the name of the collection this client addresses.
func (s *Storage) Collection() string { return s.collection }

func (s *Storage) collectionURL(suffix string) string {
	return s.url + "/collections/" + url.PathEscape(s.collection) + suffix
}

func (s *Storage) CollectionExists(ctx context.Context) (bool, error) {
	var resp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.collectionURL("/exists"), nil, &resp); err != nil {
		return false, err
	}
	return resp.Result.Exists, nil
}

func (s *Storage) CreateCollection(ctx context.Context, dimension int, distance domain.Distance) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if distance == "" {
		distance = domain.Cosine
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": string(distance),
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil)
}

func (s *Storage) DropCollection(ctx context.Context) error {
	return s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil)
}

const scrollPageSize = 256

type point struct {
	ID      any            `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload"`
	Score   float64        `json:"score,omitempty"`
}

func (p point) toDomain() (domain.Point, error) {
	rec, err := domain.RecordFromPayload(p.Payload)
	if err != nil {
		return domain.Point{}, err
	}
	return domain.Point{ID: fmt.Sprint(p.ID), Vector: p.Vector, Record: rec}, nil
}

// Scroll uses a `match.text` condition for substring mode. Without a full-text
// index on the field Qdrant evaluates it as a plain substring test.
// A limit of zero or less follows next_page_offset until every match is read.
func (s *Storage) Scroll(ctx context.Context, filter domain.TextMatch, limit int) ([]domain.Point, error) {
	pageLimit := limit
	if limit <= 0 {
		pageLimit = scrollPageSize
	}
	req := map[string]any{
		"limit":        pageLimit,
		"with_payload": true,
		"with_vector":  false,
	}
	if filter.Field != "" {
		match := map[string]any{"text": filter.Value}
		if filter.Mode == domain.MatchExact {
			match = map[string]any{"value": filter.Value}
		}
		req["filter"] = map[string]any{
			"must": []any{map[string]any{"key": filter.Field, "match": match}},
		}
	}

	var out []domain.Point
	for {
		var resp struct {
			Result struct {
				Points         []point `json:"points"`
				NextPageOffset any     `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), req, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			dp, err := p.toDomain()
			if err != nil {
				// foreign payloads still count as matches
				dp = domain.Point{ID: fmt.Sprint(p.ID)}
			}
			out = append(out, dp)
		}
		if limit > 0 || resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			return out, nil
		}
		req["offset"] = resp.Result.NextPageOffset
	}
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.ScoredPoint, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []point `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		p, err := r.toDomain()
		if err != nil {
			continue
		}
		results = append(results, domain.ScoredPoint{Point: p, Score: r.Score})
	}
	return results, nil
}

func (s *Storage) Upsert(ctx context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := make([]point, len(points))
	for i, p := range points {
		body[i] = point{ID: p.ID, Vector: p.Vector, Payload: p.Record.Payload()}
	}
	return s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), map[string]any{"points": body}, nil)
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/count"), map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("qdrant %s %s: %w", method, url, domain.ErrCollectionMissing)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s failed: %s %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Package httpapi reads site data from the SEAD JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// DefaultMaxIDSetBytes bounds the encoded length of one ids query parameter.
const DefaultMaxIDSetBytes = 1800

// separatorBytes is the encoded width of the comma between ids ("%2C").
const separatorBytes = 3

// Config configures the client.
type Config struct {
	BaseURL       string
	MaxIDSetBytes int
	Timeout       time.Duration
	// ChunkConcurrency bounds parallel chunk requests; zero means sequential.
	ChunkConcurrency int
	Client           *http.Client
}

// Source implements datasetapi.DataSource over HTTP.
type Source struct {
	base        *url.URL
	client      *http.Client
	maxIDBytes  int
	concurrency int
}

var _ datasetapi.DataSource = (*Source)(nil)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

// Error includes the response body when the server sent one.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.Status, e.Body)
}

// ErrNotFound is matched by StatusError values carrying a 404.
var ErrNotFound = errors.New("not found")

// Is reports 404 responses as ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// New validates cfg and returns a source.
func New(cfg Config) (*Source, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("httpapi: base url required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("httpapi: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("httpapi: unsupported scheme %q", base.Scheme)
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := cfg.MaxIDSetBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxIDSetBytes
	}
	concurrency := cfg.ChunkConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Source{base: base, client: client, maxIDBytes: maxBytes, concurrency: concurrency}, nil
}

func (s *Source) endpoint(query url.Values, segments ...string) string {
	u := *s.base
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (s *Source) get(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: target, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", target, err)
	}
	return nil
}

// Site fetches /sites/{id}.
func (s *Source) Site(ctx context.Context, siteID int) (domain.Site, error) {
	var site domain.Site
	err := s.get(ctx, s.endpoint(nil, "sites", strconv.Itoa(siteID)), &site)
	return site, err
}

// Analyses fetches /analyses/site/{id}.
func (s *Source) Analyses(ctx context.Context, siteID int) ([]domain.AnalysisRow, error) {
	var rows []domain.AnalysisRow
	err := s.get(ctx, s.endpoint(nil, "analyses", "site", strconv.Itoa(siteID)), &rows)
	return rows, err
}

// DatasetEntities fetches /datasets/{id}/entities.
func (s *Source) DatasetEntities(ctx context.Context, datasetID int) ([]domain.AnalysisEntity, error) {
	var entities []domain.AnalysisEntity
	err := s.get(ctx, s.endpoint(nil, "datasets", strconv.Itoa(datasetID), "entities"), &entities)
	return entities, err
}

// LookupTable fetches /lookups/{name}.
func (s *Source) LookupTable(ctx context.Context, spec domain.LookupSpec) ([]domain.Row, error) {
	var rows []domain.Row
	err := s.get(ctx, s.endpoint(nil, "lookups", spec.Name), &rows)
	return rows, err
}

// RowsByIDSet splits ids into chunks that respect the byte budget and
// concatenates the chunk responses in chunk order.
func (s *Source) RowsByIDSet(ctx context.Context, table, column string, ids []int) ([]domain.Row, error) {
	chunks := ChunkIDs(ids, s.maxIDBytes)
	results := make([][]domain.Row, len(chunks))
	fetches := make([]func(context.Context) error, len(chunks))
	for i, chunk := range chunks {
		fetches[i] = func(ctx context.Context) error {
			query := url.Values{"column": {column}, "ids": {joinIDs(chunk)}}
			return s.get(ctx, s.endpoint(query, "rows", table), &results[i])
		}
	}
	if err := datasetapi.FanOut(ctx, s.concurrency, fetches...); err != nil {
		return nil, err
	}
	var out []domain.Row
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

// SiteEcocodes fetches /ecocodes/site/{id}.
func (s *Source) SiteEcocodes(ctx context.Context, siteID int) ([]domain.EcocodeBundle, error) {
	var bundles []domain.EcocodeBundle
	err := s.get(ctx, s.endpoint(nil, "ecocodes", "site", strconv.Itoa(siteID)), &bundles)
	return bundles, err
}

// SampleEcocodes fetches /ecocodes/site/{id}/samples.
func (s *Source) SampleEcocodes(ctx context.Context, siteID int) ([]domain.SampleEcocodeBundle, error) {
	var bundles []domain.SampleEcocodeBundle
	err := s.get(ctx, s.endpoint(nil, "ecocodes", "site", strconv.Itoa(siteID), "samples"), &bundles)
	return bundles, err
}

// ChunkIDs partitions ids so each chunk's URL-encoded comma list stays within
// maxBytes. An id that alone exceeds the budget forms its own chunk.
func ChunkIDs(ids []int, maxBytes int) [][]int {
	if len(ids) == 0 {
		return nil
	}
	var (
		chunks  [][]int
		current []int
		size    int
	)
	for _, id := range ids {
		width := len(strconv.Itoa(id))
		next := size + width
		if len(current) > 0 {
			next += separatorBytes
		}
		if len(current) > 0 && next > maxBytes {
			chunks = append(chunks, current)
			current, next = nil, width
		}
		current = append(current, id)
		size = next
	}
	return append(chunks, current)
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

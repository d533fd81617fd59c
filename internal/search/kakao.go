package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kayz/kakaomap-mcp/internal/logger"
	"github.com/kayz/kakaomap-mcp/internal/metrics"
	"go.uber.org/zap"
)

const (
	EndpointKeyword = "keyword"
	EndpointWeb     = "web"
	EndpointImage   = "image"

	webPageSize   = 5
	imagePageSize = 1

	maxBodyBytes = 2 << 20
)

// Config carries everything the client needs; nothing is read from the
// environment at call time.
type Config struct {
	APIKey        string
	LocalBaseURL  string
	SearchBaseURL string
	Timeout       time.Duration
	PlaceSize     int
}

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed with status: %s", e.Endpoint, e.Status)
}

// Client issues the three Kakao search calls. Every public method degrades
// to an empty result on failure so a single bad call never aborts a caller.
type Client struct {
	cfg      Config
	client   *http.Client
	owned    bool
	log      *zap.Logger
	recorder metrics.Recorder
}

type Option func(*Client)

// WithHTTPClient replaces the client's own transport. The caller keeps
// ownership of hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
		c.owned = false
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient builds a client with its own connection pool, released by Close.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.LocalBaseURL = strings.TrimRight(cfg.LocalBaseURL, "/")
	cfg.SearchBaseURL = strings.TrimRight(cfg.SearchBaseURL, "/")

	c := &Client{
		cfg:      cfg,
		client:   &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		owned:    true,
		log:      logger.Named("kakao"),
		recorder: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases pooled connections held by a client-owned transport.
func (c *Client) Close() {
	if c.owned {
		c.client.CloseIdleConnections()
	}
}

// Places runs the keyword search for query.
func (c *Client) Places(ctx context.Context, query string) []Place {
	params := url.Values{}
	params.Set("query", query)
	if c.cfg.PlaceSize > 0 {
		params.Set("size", strconv.Itoa(c.cfg.PlaceSize))
	}

	var resp documentsResponse[Place]
	if err := c.get(ctx, EndpointKeyword, c.cfg.LocalBaseURL+"/keyword.json", params, &resp); err != nil {
		c.log.Warn("fetch places failed", zap.String("query", query), zap.Error(err))
		return []Place{}
	}
	if resp.Documents == nil {
		return []Place{}
	}
	return resp.Documents
}

// RelatedDocuments returns up to 5 web documents matching query.
func (c *Client) RelatedDocuments(ctx context.Context, query string) []WebDocument {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("size", strconv.Itoa(webPageSize))

	var resp documentsResponse[WebDocument]
	if err := c.get(ctx, EndpointWeb, c.cfg.SearchBaseURL+"/web", params, &resp); err != nil {
		c.log.Warn("fetch web documents failed", zap.String("query", query), zap.Error(err))
		return []WebDocument{}
	}
	if resp.Documents == nil {
		return []WebDocument{}
	}
	return resp.Documents
}

// Image returns the first image matching query, or the zero value.
func (c *Client) Image(ctx context.Context, query string) ImageDocument {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("size", strconv.Itoa(imagePageSize))

	var resp documentsResponse[ImageDocument]
	if err := c.get(ctx, EndpointImage, c.cfg.SearchBaseURL+"/image", params, &resp); err != nil {
		c.log.Warn("fetch image failed", zap.String("query", query), zap.Error(err))
		return ImageDocument{}
	}
	if len(resp.Documents) == 0 {
		return ImageDocument{}
	}
	return resp.Documents[0]
}

func (c *Client) get(ctx context.Context, endpoint, rawURL string, params url.Values, target any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid %s url: %w", endpoint, err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "KakaoAK "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.recorder.Upstream(endpoint, 0, err, time.Since(start))
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.recorder.Upstream(endpoint, resp.StatusCode, nil, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(target); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}

	c.log.Debug("upstream request done",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

package browser

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"
)

// HTTPSourceOptions configures an HTTPSource.
type HTTPSourceOptions struct {
	Timeout     time.Duration
	UserAgents  []string
	MaxBodySize int64
}

// HTTPSource loads pages over plain HTTP.
type HTTPSource struct {
	client      *http.Client
	userAgents  []string
	uaIndex     atomic.Int64
	maxBodySize int64
	logger      *slog.Logger
}

// NewHTTPSource creates an HTTPSource with its own cookie jar.
func NewHTTPSource(opts HTTPSourceOptions, logger *slog.Logger) (*HTTPSource, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decoded below, including brotli
	}

	return &HTTPSource{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   opts.Timeout,
		},
		userAgents:  opts.UserAgents,
		maxBodySize: opts.MaxBodySize,
		logger:      logger.With("component", "http_source"),
	}, nil
}

// Load implements PageSource.
func (h *HTTPSource) Load(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", h.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var reader io.Reader = resp.Body
	if h.maxBodySize > 0 {
		reader = io.LimitReader(reader, h.maxBodySize)
	}
	reader, err = decompressReader(resp, reader)
	if err != nil {
		return nil, "", fmt.Errorf("decode body: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	h.logger.Debug("fetch complete",
		"url", rawURL,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", time.Since(start),
	)
	return body, resp.Request.URL.String(), nil
}

// Close releases idle connections.
func (h *HTTPSource) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// nextUserAgent returns the next User-Agent in rotation.
func (h *HTTPSource) nextUserAgent() string {
	if len(h.userAgents) == 0 {
		return "catalogcrawl"
	}
	idx := h.uaIndex.Add(1) % int64(len(h.userAgents))
	return h.userAgents[idx]
}

// decompressReader wraps a reader with the decoder for the response's
// Content-Encoding (gzip, deflate or brotli).
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// MapSource serves pages from memory, keyed by URL. It is used for offline
// replays of saved listing pages.
type MapSource map[string]string

// Load implements PageSource.
func (m MapSource) Load(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	body, ok := m[rawURL]
	if !ok {
		return nil, "", fmt.Errorf("no page stored for %s", rawURL)
	}
	return []byte(body), rawURL, nil
}

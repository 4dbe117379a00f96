// Package paddle recognizes text through a PaddleOCR serving endpoint
// (PaddleHub "ocr_system" module).
package paddle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/bindery/internal/recognition"
)

const (
	Name           = "paddle"
	DefaultURL     = "http://localhost:8868"
	PredictPath    = "/predict/ocr_system"
	statusSuccess  = "000"
	defaultTimeout = 120 * time.Second
)

// Config holds configuration for the PaddleOCR client.
type Config struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int           // retries after the first attempt on transient failures
	RetryDelay time.Duration // base delay between retries
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements recognition.Recognizer against a PaddleOCR server.
type Client struct {
	url        string
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
	logger     *slog.Logger
}

// New creates a PaddleOCR client.
func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		client:     httpClient,
		logger:     logger.With("recognizer", Name),
	}
}

// Name returns the recognizer identifier.
func (c *Client) Name() string { return Name }

// URL returns the server base URL.
func (c *Client) URL() string { return c.url }

// Recognize sends the image to the server. Network errors and 5xx
// responses are retried; 4xx responses and malformed payloads are not.
func (c *Client) Recognize(ctx context.Context, imagePath string) (*recognition.Result, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	body, err := json.Marshal(predictRequest{Images: []string{base64.StdEncoding.EncodeToString(data)}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp *predictResponse
	err = retry.Do(
		func() error {
			r, err := c.predict(ctx, body)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries+1)),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("ocr request failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	regions, err := resp.regions()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("ocr complete", "image", imagePath, "regions", len(regions))
	return recognition.NewResult(imagePath, Name, regions), nil
}

// HealthCheck reports whether the server answers at all.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+PredictPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) predict(ctx context.Context, body []byte) (*predictResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+PredictPath, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Unrecoverable(ctx.Err())
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.Unrecoverable(&StatusError{Code: resp.StatusCode, Body: truncate(respBody)})
	}

	var pr predictResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if pr.Status != "" && pr.Status != statusSuccess {
		return nil, retry.Unrecoverable(fmt.Errorf("server error (status %s): %s", pr.Status, pr.Msg))
	}
	return &pr, nil
}

// StatusError is a non-200 response from the server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("paddleocr error (status %d): %s", e.Code, e.Body)
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func truncate(b []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// PaddleHub serving wire types.

type predictRequest struct {
	Images []string `json:"images"`
}

type predictResponse struct {
	Msg     string         `json:"msg"`
	Status  string         `json:"status"`
	Results [][]textRegion `json:"results"`
}

type textRegion struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	TextRegion [][]float64 `json:"text_region"`
}

func (r *predictResponse) regions() ([]recognition.Region, error) {
	if len(r.Results) == 0 {
		return nil, nil
	}
	out := make([]recognition.Region, 0, len(r.Results[0]))
	for i, tr := range r.Results[0] {
		if len(tr.TextRegion) != 4 {
			return nil, fmt.Errorf("region %d: expected 4 points, got %d", i, len(tr.TextRegion))
		}
		var q recognition.Quad
		for j, p := range tr.TextRegion {
			if len(p) < 2 {
				return nil, fmt.Errorf("region %d: point %d has %d coordinates", i, j, len(p))
			}
			q[j] = recognition.Point{X: p[0], Y: p[1]}
		}
		out = append(out, recognition.Region{Quad: q, Text: tr.Text, Confidence: tr.Confidence})
	}
	return out, nil
}

var _ recognition.Recognizer = (*Client)(nil)

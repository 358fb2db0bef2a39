package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

// AnalysisClient talks to a running agris API server.
type AnalysisClient struct {
	baseURL string
	hc      *http.Client
	cb      *circuitBreaker
	backoff time.Duration
}

type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("agris api: %d %s", e.Status, strings.TrimSpace(e.Body))
}

// Response decodes the JSON error body when the server sent one.
func (e *UpstreamError) Response() (models.ErrorResponse, bool) {
	var out models.ErrorResponse
	if err := json.Unmarshal([]byte(e.Body), &out); err != nil || out.Error == "" {
		return out, false
	}
	return out, true
}

var ErrCircuitOpen = errors.New("agris api circuit breaker open")

type circuitBreaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	openedAt  time.Time
	cooldown  time.Duration
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, cooldown: cooldown}
}

func (c *circuitBreaker) allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures < c.threshold {
		return true
	}
	if time.Since(c.openedAt) > c.cooldown {
		c.failures = 0
		c.openedAt = time.Time{}
		return true
	}
	return false
}

func (c *circuitBreaker) success() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
	c.openedAt = time.Time{}
}

func (c *circuitBreaker) fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.threshold {
		c.openedAt = time.Now()
	}
}

func NewAnalysisClient(baseURL string, timeout time.Duration) *AnalysisClient {
	return &AnalysisClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
		cb:      newCircuitBreaker(3, 30*time.Second),
		backoff: 300 * time.Millisecond,
	}
}

func (c *AnalysisClient) Health(ctx context.Context) (models.HealthResponse, error) {
	var out models.HealthResponse
	err := c.getJSON(ctx, "/health", nil, &out)
	return out, err
}

func (c *AnalysisClient) Demand(ctx context.Context, q AnalysisQuery) (models.DemandResponse, error) {
	var out models.DemandResponse
	err := c.getJSON(ctx, "/analysis/demand", q.values(), &out)
	return out, err
}

func (c *AnalysisClient) Price(ctx context.Context, q AnalysisQuery) (models.PriceResponse, error) {
	var out models.PriceResponse
	err := c.getJSON(ctx, "/analysis/price", q.values(), &out)
	return out, err
}

func (c *AnalysisClient) Gap(ctx context.Context, q AnalysisQuery) (models.GapResponse, error) {
	var out models.GapResponse
	err := c.getJSON(ctx, "/analysis/gap", q.values(), &out)
	return out, err
}

func (c *AnalysisClient) Recommendations(ctx context.Context, q AnalysisQuery) (models.RecommendationsResponse, error) {
	var out models.RecommendationsResponse
	err := c.getJSON(ctx, "/analysis/recommendations", q.values(), &out)
	return out, err
}

// Upload posts a CSV file to /upload/{kind}. Uploads are not retried.
func (c *AnalysisClient) Upload(ctx context.Context, kind, filename string, r io.Reader) (models.UploadResult, error) {
	var out models.UploadResult
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return out, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return out, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return out, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/"+kind, &body)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res, err := c.hc.Do(req)
	if err != nil {
		return out, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		return out, &UpstreamError{Status: res.StatusCode, Body: string(b)}
	}
	return out, json.NewDecoder(res.Body).Decode(&out)
}

type AnalysisQuery struct {
	AsOf       string
	WindowDays int
}

func (q AnalysisQuery) values() url.Values {
	v := url.Values{}
	if q.AsOf != "" {
		v.Set("as_of", q.AsOf)
	}
	if q.WindowDays > 0 {
		v.Set("window_days", fmt.Sprint(q.WindowDays))
	}
	return v
}

// getJSON retries transport failures and 5xx answers; a 4xx is returned at once.
func (c *AnalysisClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if !c.cb.allow() {
		return ErrCircuitOpen
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				c.cb.fail()
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		res, err := c.hc.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if res.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
			res.Body.Close()
			lastErr = &UpstreamError{Status: res.StatusCode, Body: string(b)}
			if res.StatusCode < 500 {
				c.cb.success()
				return lastErr
			}
			continue
		}
		err = json.NewDecoder(res.Body).Decode(out)
		res.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("decoding %s: %w", path, err)
			continue
		}
		c.cb.success()
		return nil
	}

	c.cb.fail()
	return lastErr
}

// internal/clients/client.go

// Package clients talks to the storage services that own items, users,
// requests and policy documents.
package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var ErrNotFound = errors.New("resource not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configures the shared HTTP client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RPS caps outgoing requests per second; zero means unlimited.
	RPS   float64
	Burst int
}

// Client is the HTTP client shared by every storage client.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	tracer  trace.Tracer
}

func New(opt Options) *Client {
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opt.RPS > 0 {
		burst := opt.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opt.RPS), burst)
	}
	return &Client{
		baseURL: strings.TrimRight(opt.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		tracer:  otel.Tracer("libracirc/clients"),
	}
}

// get fetches path and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, span, path string, query url.Values) (body []byte, err error) {
	ctx, sp := c.tracer.Start(ctx, span, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil && !errors.Is(err, ErrNotFound) {
			sp.RecordError(err)
			sp.SetStatus(codes.Error, span)
		}
		sp.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	sp.SetAttributes(
		attribute.String("http.url", target),
		attribute.Int("http.status_code", resp.StatusCode),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("GET %s: %w", path, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, span, path string, query url.Values, out any) error {
	body, err := c.get(ctx, span, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Package apiclient is the typed HTTP client for the fitness API. Each browser
// session talks to the API through its own Caller carrying that session's
// upstream cookies.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fitnessweb/internal/middleware"
	"fitnessweb/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const maxResponseBytes = 4 << 20

// ErrTransport marks failures where the API gave no HTTP answer at all.
var ErrTransport = errors.New("fitness api unreachable")

// Client holds the API location and the shared transport.
type Client struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client

	base *url.URL
}

// New returns a Client for baseURL (e.g. http://localhost:5000/api).
func New(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    base.String(),
		Timeout:    timeout,
		HTTPClient: &http.Client{Timeout: timeout},
		base:       base,
	}, nil
}

// cookieURL is the URL cookies are scoped to: the API base path with a
// trailing slash so both Path=/ and Path=/api cookies match.
func (c *Client) cookieURL() *url.URL {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	return &u
}

// For returns a Caller whose cookie jar is seeded with cookies.
func (c *Client) For(cookies []*http.Cookie) *Caller {
	jar, _ := cookiejar.New(nil)
	if len(cookies) > 0 {
		jar.SetCookies(c.cookieURL(), cookies)
	}

	httpClient := &http.Client{
		Jar:     jar,
		Timeout: c.Timeout,
	}
	if c.HTTPClient != nil {
		httpClient.Transport = c.HTTPClient.Transport
	}

	return &Caller{client: c, http: httpClient, jar: jar}
}

// Caller performs API requests on behalf of one browser session.
type Caller struct {
	client *Client
	http   *http.Client
	jar    http.CookieJar
}

// Cookies returns the upstream cookies currently held for the session,
// including any the API set during this request.
func (c *Caller) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.client.cookieURL())
}

// Do sends one request. query may be nil; body is JSON-encoded when non-nil;
// out receives the decoded JSON body when non-nil. Non-2xx answers return *Error.
func (c *Caller) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.do(ctx, endpointLabel(path), method, path, query, body, out)
}

func (c *Caller) do(ctx context.Context, endpoint, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	ctx, span := observability.StartClientSpan(ctx, method, endpoint)

	status, err := c.roundTrip(ctx, method, path, query, body, out)

	observability.EndSpan(span, status, err)
	observability.ObserveAPICall(endpoint, method, status, start)
	middleware.Logger.DebugContext(ctx, "fitness api call",
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("status", status),
		slog.Duration("latency", time.Since(start)),
	)
	return err
}

func (c *Caller) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	target := c.client.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal %s %s payload: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute %s %s: %w: %w", method, path, ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read %s %s response: %w: %w", method, path, ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, newError(resp.StatusCode, method, path, raw)
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// endpointLabel collapses numeric path segments so metrics and span names
// stay low-cardinality: /admin/users/12/toggle_admin -> /admin/users/:id/toggle_admin.
func endpointLabel(path string) string {
	path = "/" + strings.Trim(path, "/")
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

// Package graphql implements the GraphQLTransport port over HTTP.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
	"github.com/ericfisherdev/covlens/internal/requestid"
)

// Compile-time interface satisfaction check.
var _ driven.GraphQLTransport = (*Client)(nil)

// maxResponseBytes caps the size of a response body that will be read.
const maxResponseBytes = 32 << 20

// Client implements the driven.GraphQLTransport port. Each provider has its
// own endpoint at {baseURL}/graphql/{provider}.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	token   string
	method  string
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the API token sent as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithMethod selects POST (the default) or GET. GET requests carry the
// operation in the query string and are eligible for HTTP caching.
func WithMethod(method string) Option {
	return func(c *Client) {
		c.method = strings.ToUpper(method)
	}
}

// NewClient creates a GraphQL client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching of GET operations)
//  2. go-github-ratelimit (sleeps on 429 / Retry-After before retrying)
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	rateLimitClient.Timeout = timeout

	return NewClientWithHTTPClient(rateLimitClient, baseURL, opts...)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	c := &Client{
		http:    httpClient,
		baseURL: u,
		method:  http.MethodPost,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.method != http.MethodPost && c.method != http.MethodGet {
		return nil, fmt.Errorf("unsupported GraphQL method %q", c.method)
	}
	return c, nil
}

// request is the JSON body of a POST operation.
type request struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

// response is the GraphQL response envelope. Data is left raw so the caller
// can validate it against the operation's contract.
type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Execute runs op and returns the raw "data" object. Partial responses that
// carry both data and errors return the data and log the errors.
func (c *Client) Execute(ctx context.Context, op contract.Operation) ([]byte, error) {
	if op.Provider == "" {
		return nil, fmt.Errorf("%s: provider is required", op.Name)
	}

	httpReq, err := c.newRequest(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", op.Name, err)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Operation: op.Name, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Operation: op.Name, Status: resp.StatusCode, Err: err}
	}

	slog.Debug("graphql: response",
		"operation", op.Name,
		"provider", op.Provider,
		"status", resp.StatusCode,
		"cached", resp.Header.Get(httpcache.XFromCache) == "1",
		"duration", time.Since(start).Round(time.Millisecond),
		"request_id", httpReq.Header.Get(requestid.Header),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Operation: op.Name,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var gqlResp response
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, &TransportError{Operation: op.Name, Status: resp.StatusCode, Err: fmt.Errorf("decoding envelope: %w", err)}
	}

	hasData := len(gqlResp.Data) > 0 && !bytes.Equal(gqlResp.Data, []byte("null"))
	if len(gqlResp.Errors) > 0 {
		if !hasData {
			return nil, &TransportError{
				Operation: op.Name,
				Status:    resp.StatusCode,
				Err:       errors.New(gqlResp.Errors[0].Message),
			}
		}
		slog.Warn("graphql: partial response contains errors",
			"operation", op.Name,
			"errors", gqlResp.Errors[0].Message,
			"count", len(gqlResp.Errors),
		)
	}
	if !hasData {
		return nil, &TransportError{Operation: op.Name, Status: resp.StatusCode, Err: errors.New("response has no data")}
	}

	return gqlResp.Data, nil
}

func (c *Client) newRequest(ctx context.Context, op contract.Operation) (*http.Request, error) {
	endpoint := c.baseURL.JoinPath("graphql", op.Provider)

	var httpReq *http.Request
	switch c.method {
	case http.MethodGet:
		vars, err := json.Marshal(op.Variables)
		if err != nil {
			return nil, fmt.Errorf("marshaling variables: %w", err)
		}
		q := url.Values{}
		q.Set("operationName", op.Name)
		q.Set("query", op.Query)
		q.Set("variables", string(vars))
		endpoint.RawQuery = q.Encode()

		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, err
		}
	default:
		bodyBytes, err := json.Marshal(request{OperationName: op.Name, Query: op.Query, Variables: op.Variables})
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestid.Header, requestid.FromOrNew(ctx))
	if c.token != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("bearer %s", c.token))
	}
	return httpReq, nil
}

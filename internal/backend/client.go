// Package backend is the storefront's client for the REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/internal/auth"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/tracing"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client calls the REST backend. A Client without a token source can only
// reach public endpoints; use ForSession to bind one.
type Client struct {
	http    HTTPDoer
	baseURL string
	tokens  auth.TokenSource
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(doer HTTPDoer, baseURL string) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ForSession returns a copy of c that authenticates with tokens.
func (c *Client) ForSession(tokens auth.TokenSource) *Client {
	clone := *c
	clone.tokens = tokens
	return &clone
}

type call struct {
	method   string
	path     string
	resource string
	body     any
	out      any
	public   bool
}

// send performs one backend call. Authenticated calls without a credential
// fail with an auth error before any request is built.
func (c *Client) send(ctx context.Context, cl call) error {
	var bearer string
	if !cl.public {
		if c.tokens == nil {
			return apperrors.Unauthorized("please sign in to continue")
		}
		token, err := c.tokens.Bearer(ctx)
		if err != nil {
			return err
		}
		bearer = token
	}

	ctx, span := tracing.Tracer("backend").Start(ctx, "backend."+cl.resource,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", cl.method),
			attribute.String("url.path", cl.path),
		),
	)
	defer span.End()

	err := c.roundTrip(ctx, cl, bearer)
	if err != nil {
		tracing.RecordError(span, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, cl call, bearer string) error {
	var body *bytes.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", cl.resource, err)
		}
		body = bytes.NewReader(data)
	}

	var httpReq *http.Request
	var err error
	if body != nil {
		httpReq, err = http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, http.NoBody)
	}
	if err != nil {
		return fmt.Errorf("create %s request: %w", cl.resource, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return fmt.Errorf("call %s: %w", cl.resource, err)
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		return httpclient.ParseResponseError(resp, cl.resource)
	}
	defer resp.Body.Close()

	if cl.out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		return fmt.Errorf("decode %s response: %w", cl.resource, err)
	}
	return nil
}

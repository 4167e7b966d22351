// Package apiclient talks to the remote shop API. Every outbound call goes
// through one pipeline that attaches the visitor's bearer token, adds a
// cache-busting query parameter, retries connectivity failures on a fixed
// delay and maps answers onto a small failure taxonomy.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/lube-storefront/internal/cache"
	"github.com/iliyamo/lube-storefront/internal/metrics"
)

// Config controls the request pipeline and the memoized reads.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	Retries          int
	RetryDelay       time.Duration
	ProductsTTL      time.Duration
	AdminProductsTTL time.Duration
}

// TokenSource supplies the bearer token of the current visitor and clears
// the visitor's session when the API rejects it.
type TokenSource interface {
	Token(ctx context.Context) string
	Expire(ctx context.Context) error
}

// Client is safe for concurrent use.
type Client struct {
	cfg    Config
	hc     *http.Client
	tokens TokenSource
	cache  cache.Cache
	log    *zap.Logger
	tracer trace.Tracer
	seq    atomic.Int64
	sleep  func(ctx context.Context, d time.Duration) error
}

// New builds a client. tokens and c must not be nil.
func New(cfg Config, tokens TokenSource, c cache.Cache, log *zap.Logger) *Client {
	if tokens == nil || c == nil {
		panic("apiclient: nil token source or cache")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.ProductsTTL <= 0 {
		cfg.ProductsTTL = 5 * time.Minute
	}
	if cfg.AdminProductsTTL <= 0 {
		cfg.AdminProductsTTL = time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cl := &Client{
		cfg:    cfg,
		hc:     &http.Client{Timeout: cfg.Timeout},
		tokens: tokens,
		cache:  c,
		log:    log,
		tracer: otel.Tracer("github.com/iliyamo/lube-storefront/internal/apiclient"),
		sleep:  sleepCtx,
	}
	cl.seq.Store(time.Now().UnixMilli())
	return cl
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// call describes one logical API operation. op labels logs, metrics and
// spans; path may contain ids, op must not.
type call struct {
	op        string
	method    string
	path      string
	query     url.Values
	body      any
	needsAuth bool
}

// Response is a decoded 2xx answer.
type Response struct {
	Status int
	Body   []byte
}

// Data decodes the "data" member of the standard envelope.
func (r *Response) Data(dst any) error { return r.Field("data", dst) }

// Field decodes one top-level member of the body. A missing member leaves
// dst untouched.
func (r *Response) Field(name string, dst any) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(r.Body, &m); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	raw, ok := m[name]
	if !ok || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// nextStamp returns the cache-busting value for the next request.
func (c *Client) nextStamp() string {
	return strconv.FormatInt(c.seq.Add(1), 10)
}

func (c *Client) do(ctx context.Context, cl call) (*Response, error) {
	token := c.tokens.Token(ctx)
	if cl.needsAuth && token == "" {
		return nil, ErrAuthRequired
	}

	var (
		payload     []byte
		contentType string
	)
	switch b := cl.body.(type) {
	case nil:
	case *Multipart:
		ct, bs, err := b.encode()
		if err != nil {
			return nil, fmt.Errorf("%s: encode multipart: %w", cl.op, err)
		}
		contentType, payload = ct, bs
	default:
		bs, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", cl.op, err)
		}
		contentType, payload = "application/json", bs
	}

	ctx, span := c.tracer.Start(ctx, "api "+cl.op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", cl.method),
			attribute.String("url.path", cl.path),
		))
	defer span.End()

	start := time.Now()
	resp, err := c.send(ctx, cl, token, contentType, payload)
	metrics.APIRequestDuration.WithLabelValues(cl.method, cl.op).Observe(time.Since(start).Seconds())

	outcome := "ok"
	var cf *ConnectivityFailure
	switch {
	case errors.As(err, &cf):
		outcome = "unreachable"
	case err != nil:
		outcome = "error"
	}
	metrics.APIRequests.WithLabelValues(cl.method, cl.op, outcome).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	return resp, nil
}

// send runs the attempt loop. Only failures without any response are
// retried; a request that never left the machine is retried whatever its
// method, anything else only for idempotent methods.
func (c *Client) send(ctx context.Context, cl call, token, contentType string, payload []byte) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
				return nil, &ConnectivityFailure{Op: cl.op, Err: err}
			}
		}
		req, err := c.newRequest(ctx, cl, token, contentType, payload)
		if err != nil {
			return nil, err
		}
		res, err := c.hc.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warn("api request failed",
				zap.String("op", cl.op), zap.String("method", cl.method), zap.String("path", cl.path),
				zap.Int("attempt", attempt+1), zap.Error(err))
			if ctx.Err() != nil || !retryable(cl.method, err) {
				break
			}
			continue
		}
		return c.handle(ctx, cl, token, res)
	}
	return nil, &ConnectivityFailure{Op: cl.op, Err: lastErr}
}

func (c *Client) newRequest(ctx context.Context, cl call, token, contentType string, payload []byte) (*http.Request, error) {
	u, err := url.Parse(c.cfg.BaseURL + cl.path)
	if err != nil {
		return nil, fmt.Errorf("%s: build url: %w", cl.op, err)
	}
	q := u.Query()
	for k, vs := range cl.query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("_t", c.nextStamp())
	u.RawQuery = q.Encode()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

func (c *Client) handle(ctx context.Context, cl call, token string, res *http.Response) (*Response, error) {
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &ConnectivityFailure{Op: cl.op, Err: err}
	}
	var env envelope
	_ = json.Unmarshal(body, &env)

	if res.StatusCode == http.StatusUnauthorized && token != "" {
		c.log.Info("api rejected session token", zap.String("op", cl.op))
		if err := c.tokens.Expire(ctx); err != nil {
			c.log.Error("clear expired session", zap.Error(err))
		}
		return nil, ErrSessionExpired
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.log.Info("api request rejected",
			zap.String("op", cl.op), zap.Int("status", res.StatusCode), zap.String("message", env.text()))
		return nil, &RequestFailure{Op: cl.op, Status: res.StatusCode, Message: env.text()}
	}
	if env.Success != nil && !*env.Success {
		return nil, &RequestFailure{Op: cl.op, Status: res.StatusCode, Message: env.text()}
	}
	return &Response{Status: res.StatusCode, Body: body}, nil
}

func retryable(method string, err error) bool {
	var op *net.OpError
	if errors.As(err, &op) && op.Op == "dial" {
		return true
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// Package registrar is the gateway to the domain registrar's reseller API:
// query-string requests, XML responses, one round trip per operation.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"domainvault/internal/registrar/metrics"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/circuit"
)

const (
	commandCheck      = "check"
	commandPricing    = "GetDomainPricing"
	commandPurchase   = "Purchase"
	commandGetBalance = "GetBalance"

	defaultTimeout        = 30 * time.Second
	defaultMaxConcurrency = 5
	maxResponseBytes      = 1 << 20
)

// Config holds the reseller credentials and call limits.
type Config struct {
	BaseURL        string
	UID            string
	Password       string
	Timeout        time.Duration
	MaxConcurrency int
}

// Client calls the registrar. It is safe for concurrent use.
type Client struct {
	baseURL        string
	uid            string
	password       string
	timeout        time.Duration
	maxConcurrency int

	http    *http.Client
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithBreaker fails calls fast with CategoryUnavailable while the breaker is open.
func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL:        cfg.BaseURL,
		uid:            cfg.UID,
		password:       cfg.Password,
		timeout:        cfg.Timeout,
		maxConcurrency: cfg.MaxConcurrency,
		http:           &http.Client{},
		logger:         slog.Default(),
		tracer:         otel.Tracer("domainvault/registrar"),
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.maxConcurrency <= 0 {
		c.maxConcurrency = defaultMaxConcurrency
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call performs one round trip and returns the parsed envelope and raw body.
// A response with ErrCount > 0 is returned together with a CategoryRejected error.
func (c *Client) call(ctx context.Context, command string, params url.Values) (*response, string, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "registrar."+command,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("registrar.command", command)),
	)
	defer span.End()

	resp, raw, err := c.roundTrip(ctx, command, params)

	outcome := "ok"
	if err != nil {
		outcome = string(CategoryOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("registrar.outcome", outcome))
	if c.metrics != nil {
		c.metrics.ObserveCall(command, outcome, start)
	}
	return resp, raw, err
}

func (c *Client) roundTrip(ctx context.Context, command string, params url.Values) (*response, string, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, "", newError(CategoryUnavailable, command, nil, "circuit open")
	}
	if err := ctx.Err(); err != nil {
		return nil, "", newError(CategoryUnavailable, command, err, "not sent")
	}
	callerCtx := ctx

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("uid", c.uid)
	q.Set("pw", c.password)
	q.Set("command", command)
	q.Set("responsetype", "xml")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, "", newError(CategoryUnavailable, command, err, "build request")
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		category := classify(callerCtx, ctx, err)
		c.recordTransportFailure(ctx, category)
		// url.Error embeds the full URL including credentials.
		return nil, "", newError(category, command, stripURL(err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		category := classify(callerCtx, ctx, err)
		c.recordTransportFailure(ctx, category)
		return nil, "", newError(category, command, err, "read response")
	}
	raw := string(body)

	if httpResp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure(ctx)
		return nil, raw, withRaw(newError(CategoryUnavailable, command, nil, fmt.Sprintf("http status %d", httpResp.StatusCode)), raw)
	}
	c.recordSuccess(ctx)
	if httpResp.StatusCode != http.StatusOK {
		return nil, raw, withRaw(newError(CategoryBadResponse, command, nil, fmt.Sprintf("http status %d", httpResp.StatusCode)), raw)
	}

	parsed, err := parseResponse(body)
	if err != nil {
		return nil, raw, withRaw(newError(CategoryBadResponse, command, err, "malformed xml"), raw)
	}
	count, err := parsed.errCount()
	if err != nil {
		return nil, raw, withRaw(newError(CategoryBadResponse, command, err, "malformed ErrCount"), raw)
	}
	if count > 0 {
		msgs := parsed.errorMessages()
		if len(msgs) == 0 {
			msgs = []string{"registrar reported " + strconv.Itoa(count) + " error(s)"}
		}
		rejected := withRaw(newError(CategoryRejected, command, nil, msgs...), raw)
		rejected.Code = strings.TrimSpace(parsed.RRPCode)
		return parsed, raw, rejected
	}
	return parsed, raw, nil
}

func withRaw(e *Error, raw string) *Error {
	e.Raw = raw
	return e
}

// classify labels a failed send or read. callerCtx is the context the caller
// passed in; ctx carries the client timeout on top of it.
func classify(callerCtx, ctx context.Context, err error) Category {
	if isTimeout(ctx, err) {
		return CategoryTimeout
	}
	if errors.Is(err, context.Canceled) || errors.Is(callerCtx.Err(), context.Canceled) {
		return CategoryCanceled
	}
	return CategoryUnavailable
}

// recordTransportFailure feeds the breaker. Caller cancellation is not a registrar failure.
func (c *Client) recordTransportFailure(ctx context.Context, category Category) {
	if category == CategoryCanceled {
		return
	}
	c.recordFailure(ctx)
}

func (c *Client) recordFailure(ctx context.Context) {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "registrar circuit opened", "breaker", c.breaker.Name())
		if c.metrics != nil {
			c.metrics.SetCircuitOpen(true)
		}
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "registrar circuit closed", "breaker", c.breaker.Name())
		if c.metrics != nil {
			c.metrics.SetCircuitOpen(false)
		}
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// GetBalance returns the reseller account's available balance.
func (c *Client) GetBalance(ctx context.Context) (id.Money, error) {
	resp, _, err := c.call(ctx, commandGetBalance, nil)
	if err != nil {
		return 0, err
	}
	raw := resp.AvailableBalance
	if raw == "" {
		raw = resp.Balance
	}
	balance, err := parseAmount(raw)
	if err != nil {
		return 0, newError(CategoryBadResponse, commandGetBalance, err, "malformed balance")
	}
	return balance, nil
}

// Package fusebox is the shared outbound transport used for every GitLab call.
//
// A Breaker wraps an *http.Client with an optional rate limiter, retries with
// exponential backoff on transport failures and a circuit breaker. HTTP status
// codes are never treated as failures here; interpreting them is up to the caller.
package fusebox

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
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/config"
	"github.com/redhat-data-and-ai/scm-gitlab/internal/logging"
)

const (
	defaultRetries      = 3
	defaultFactor       = 2
	defaultMinTimeout   = 100 * time.Millisecond
	defaultMaxTimeout   = 2 * time.Second
	defaultMaxFailures  = 5
	defaultResetTimeout = 30 * time.Second
	defaultTimeout      = 15 * time.Second
)

// Request describes one outbound call. It is built once per operation and not mutated.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Token  string      // sent as a bearer token when set
	Body   interface{} // JSON encoded when non-nil
}

// Response is a settled HTTP exchange with the body fully read
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Stats is a snapshot of the transport counters
type Stats struct {
	Requests RequestStats `json:"requests"`
	Breaker  BreakerStats `json:"breaker"`
}

// RequestStats holds call counters. AverageTime is in milliseconds.
type RequestStats struct {
	Total       int64   `json:"total"`
	Timeouts    int64   `json:"timeouts"`
	Success     int64   `json:"success"`
	Failure     int64   `json:"failure"`
	Concurrent  int64   `json:"concurrent"`
	AverageTime float64 `json:"averageTime"`
}

// BreakerStats reports the circuit breaker state
type BreakerStats struct {
	IsClosed bool `json:"isClosed"`
}

// Breaker issues requests through the rate limiter, retry loop and circuit breaker
type Breaker struct {
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	retry   config.RetryConfig
	timeout time.Duration

	total      atomic.Int64
	timeouts   atomic.Int64
	success    atomic.Int64
	failure    atomic.Int64
	concurrent atomic.Int64
	completed  atomic.Int64
	elapsed    atomic.Int64 // nanoseconds across completed calls
}

// New creates a Breaker. A nil client selects http.DefaultClient.
func New(name string, cfg config.FuseboxConfig, client *http.Client) *Breaker {
	if client == nil {
		client = http.DefaultClient
	}

	retry := cfg.Retry
	if retry.Retries == 0 {
		retry.Retries = defaultRetries
	}
	if retry.Factor <= 0 {
		retry.Factor = defaultFactor
	}
	if retry.MinTimeout <= 0 {
		retry.MinTimeout = defaultMinTimeout
	}
	if retry.MaxTimeout <= 0 {
		retry.MaxTimeout = defaultMaxTimeout
	}

	maxFailures := cfg.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	resetTimeout := cfg.Breaker.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = defaultResetTimeout
	}
	timeout := cfg.Breaker.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	b := &Breaker{
		client:  client,
		retry:   retry,
		timeout: timeout,
	}

	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// the caller gave up; the remote is not at fault
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return b
}

// Do issues req. Transport failures are returned unchanged once retries are exhausted.
func (b *Breaker) Do(ctx context.Context, req Request) (*Response, error) {
	b.total.Add(1)
	b.concurrent.Add(1)
	start := time.Now()
	defer func() {
		b.concurrent.Add(-1)
		b.completed.Add(1)
		b.elapsed.Add(int64(time.Since(start)))
	}()

	resp, err := b.do(ctx, req)
	if err != nil {
		b.failure.Add(1)
		if isTimeout(err) {
			b.timeouts.Add(1)
		}
		return nil, err
	}

	b.success.Add(1)
	return resp, nil
}

func (b *Breaker) do(ctx context.Context, req Request) (*Response, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.retry.MinTimeout
	policy.Multiplier = b.retry.Factor
	policy.MaxInterval = b.retry.MaxTimeout
	policy.MaxElapsedTime = 0
	if !b.retry.Randomize {
		policy.RandomizationFactor = 0
	}

	var maxRetries uint64
	if b.retry.Retries > 0 {
		maxRetries = uint64(b.retry.Retries)
	}

	var resp *Response
	attempt := 0
	operation := func() error {
		attempt++
		out, err := b.cb.Execute(func() (interface{}, error) {
			return b.roundTrip(ctx, req)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			logging.Debug("Outbound call failed",
				zap.String("method", req.Method),
				zap.String("url", req.URL),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		resp = out.(*Response)
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (b *Breaker) roundTrip(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid request url %q: %w", req.URL, err)
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// Stats returns a snapshot of the counters. It performs no I/O.
func (b *Breaker) Stats() Stats {
	var avg float64
	if completed := b.completed.Load(); completed > 0 {
		avg = float64(b.elapsed.Load()) / float64(completed) / float64(time.Millisecond)
	}

	return Stats{
		Requests: RequestStats{
			Total:       b.total.Load(),
			Timeouts:    b.timeouts.Load(),
			Success:     b.success.Load(),
			Failure:     b.failure.Load(),
			Concurrent:  b.concurrent.Load(),
			AverageTime: avg,
		},
		Breaker: BreakerStats{
			IsClosed: b.cb.State() == gobreaker.StateClosed,
		},
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

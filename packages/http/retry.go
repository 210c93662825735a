package http

import (
	"context"
	"fmt"
	"math"
	"time"
)

// RetryPolicy controls how Execute treats failed attempts.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles on each retry.
	Backoff time.Duration
	// MaxBackoff caps the delay. Zero means no cap.
	MaxBackoff time.Duration
	// RetryOn lists status codes that are retried like connection errors.
	RetryOn []int
	// ExpectStatus, when set, makes a response with exactly this status a
	// completed exchange even if it is 4xx or 5xx.
	ExpectStatus int
}

// Result is the outcome of Execute. Response holds the last response
// received, which may be set even when Err is.
type Result struct {
	Response *Response
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// Retries returns the number of attempts after the first.
func (r *Result) Retries() int {
	if r.Attempts <= 1 {
		return 0
	}
	return r.Attempts - 1
}

type outcome int

const (
	completed outcome = iota
	transient
	permanent
)

// backoff yields base*2^n for the n-th retry, capped at max.
type backoff struct {
	base    time.Duration
	max     time.Duration
	attempt int
}

func (b *backoff) next() time.Duration {
	delay := float64(b.base) * math.Pow(2, float64(b.attempt))
	b.attempt++

	if b.max > 0 && delay > float64(b.max) {
		return b.max
	}
	if delay >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// Execute sends req, retrying transient failures according to policy. It
// makes at most policy.MaxRetries+1 attempts and never returns a nil Result.
func (c *Client) Execute(ctx context.Context, req *Request, policy RetryPolicy) *Result {
	start := time.Now()
	bo := &backoff{base: policy.Backoff, max: policy.MaxBackoff}
	res := &Result{}

	for {
		if err := ctx.Err(); err != nil {
			res.Err = fmt.Errorf("%w: %v", ErrCancelled, err)
			break
		}

		res.Attempts++
		resp, err := c.Do(ctx, req)
		res.Response = resp
		kind := classify(resp, err, policy)
		c.logAttempt(req, res.Attempts, resp, err, kind)

		if kind == completed {
			break
		}
		if kind == permanent {
			if err == nil {
				err = &NonTransientError{StatusCode: resp.StatusCode}
			}
			res.Err = err
			break
		}

		if res.Attempts > policy.MaxRetries {
			te := &TransientError{Attempts: res.Attempts, Err: err}
			if resp != nil {
				te.StatusCode = resp.StatusCode
			}
			res.Err = te
			break
		}

		delay := bo.next()
		c.logger.Debug("retrying request",
			"method", req.Method,
			"url", req.BuildURL(),
			"next_attempt", res.Attempts+1,
			"delay", delay,
		)
		if err := sleep(ctx, delay); err != nil {
			res.Err = fmt.Errorf("%w during backoff: %v", ErrCancelled, err)
			break
		}
	}

	res.Elapsed = time.Since(start)
	return res
}

func classify(resp *Response, err error, policy RetryPolicy) outcome {
	if err != nil {
		if IsTransient(err) {
			return transient
		}
		return permanent
	}
	if policy.ExpectStatus != 0 && resp.StatusCode == policy.ExpectStatus {
		return completed
	}
	for _, code := range policy.RetryOn {
		if resp.StatusCode == code {
			return transient
		}
	}
	if resp.StatusCode < 400 {
		return completed
	}
	return permanent
}

func (c *Client) logAttempt(req *Request, attempt int, resp *Response, err error, kind outcome) {
	attrs := []any{
		"method", req.Method,
		"url", req.BuildURL(),
		"attempt", attempt,
	}
	switch {
	case err != nil:
		attrs = append(attrs, "error", err.Error())
		c.logger.Warn("request failed", attrs...)
	case kind != completed:
		attrs = append(attrs, "status", resp.StatusCode, "elapsed", resp.Duration)
		c.logger.Warn("request failed", attrs...)
	default:
		attrs = append(attrs, "status", resp.StatusCode, "elapsed", resp.Duration)
		c.logger.Info("request completed", attrs...)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package soniox

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
	"time"

	"github.com/googleapis/gax-go/v2"
)

// request describes one REST call. The body is kept as bytes so that it can
// be replayed on retry.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// doJSON sends a JSON request and decodes the JSON response into result.
// A nil result discards the response body.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, result any) error {
	req := &request{op: op, method: method, path: path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("soniox: marshal %s request: %w", op, err)
		}
		req.body = data
		req.contentType = "application/json"
	}
	return c.do(ctx, req, result)
}

// doMultipart uploads content as the "file" form field.
func (c *Client) doMultipart(ctx context.Context, op, path, filename string, content io.Reader, fields map[string]string, result any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("soniox: write form field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("soniox: create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("soniox: read upload content: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("soniox: close multipart writer: %w", err)
	}

	return c.do(ctx, &request{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, result)
}

// do runs req, retrying transient failures with exponential backoff.
func (c *Client) do(ctx context.Context, req *request, result any) error {
	attempt := 0
	err := gax.Invoke(ctx, func(ctx context.Context, _ gax.CallSettings) error {
		attempt++
		return c.doOnce(ctx, req, result)
	}, gax.WithRetry(func() gax.Retryer {
		return &retryer{backoff: c.config.backoff, remaining: c.config.maxRetries}
	}))
	if err != nil && attempt > 1 {
		c.config.logger.Debug("soniox request failed after retries",
			"op", req.op, "attempts", attempt, "error", err)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, req *request, result any) error {
	endpoint := c.config.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("soniox: create %s request: %w", req.op, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	start := time.Now()
	resp, err := c.config.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctxError(req.op, ctx.Err())
		}
		return &Error{Kind: KindConnection, Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindConnection, Op: req.op, Message: "read response", Err: err}
	}

	c.config.logger.Debug("soniox request",
		"op", req.op, "method", req.method, "path", req.path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(req.op, resp.StatusCode, respBody)
	}
	if result == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return &Error{Kind: KindProtocol, Op: req.op, Message: "decode response", Err: err}
	}
	return nil
}

// ctxError maps a context error onto the package taxonomy.
func ctxError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}
	return &Error{Kind: KindCancelled, Op: op, Err: err}
}

// retryer retries connection failures, throttling and server errors a
// bounded number of times.
type retryer struct {
	backoff   gax.Backoff
	remaining int
}

func (r *retryer) Retry(err error) (time.Duration, bool) {
	if r.remaining <= 0 {
		return 0, false
	}
	e, ok := AsError(err)
	if !ok {
		return 0, false
	}
	if e.Kind != KindConnection && !e.Retryable() {
		return 0, false
	}
	r.remaining--
	return r.backoff.Pause(), true
}

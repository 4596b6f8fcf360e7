package ocr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// outcome is the uniform result of one round trip. err is set when no
// complete response was received; status is then 0 unless headers arrived.
type outcome struct {
	status int
	header http.Header
	body   []byte
	err    error
}

// send performs exactly one HTTP round trip. extra headers are applied after
// the payload's own headers; the auth header is always applied last.
func (c *Client) send(ctx context.Context, p *payload, extra http.Header) outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	u := c.cfg.BaseURL + p.path

	var body io.Reader
	if p.body != nil {
		body = p.body
	}
	req, err := http.NewRequestWithContext(ctx, p.method, u, body)
	if err != nil {
		closeQuietly(p.body)
		return outcome{err: err}
	}
	if p.body != nil {
		req.ContentLength = p.length
		if p.length == 0 {
			req.Body = http.NoBody
		}
	}

	req.Header.Set("Accept", contentTypeJSON)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if p.contentType != "" {
		req.Header.Set("Content-Type", p.contentType)
	}
	for k, vs := range extra {
		if len(vs) == 0 {
			continue
		}
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set(HeaderAuth, c.cfg.APIKey)

	start := time.Now()
	c.logger.Debug("ocr request",
		zap.String("method", p.method),
		zap.String("path", p.path),
		zap.Int64("content_length", p.length),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("ocr request failed",
			zap.String("method", p.method),
			zap.String("path", p.path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return outcome{err: unwrapURLError(err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)

	c.logger.Debug("ocr response",
		zap.String("method", p.method),
		zap.String("path", p.path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)),
	)

	if err != nil {
		return outcome{status: resp.StatusCode, header: resp.Header, err: err}
	}
	return outcome{status: resp.StatusCode, header: resp.Header, body: data}
}

// unwrapURLError drops the "Post \"...\": " decoration net/http adds so the
// caller sees the underlying failure.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}

func idempotencyHeader(key string) http.Header {
	if key == "" {
		return nil
	}
	h := make(http.Header)
	h.Set(HeaderIdempotency, key)
	return h
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerCSRF      = "X-CSRF-Token"
	headerRequestID = "X-Request-ID"

	// CSRFCookie is the cookie whose value is echoed in the CSRF header.
	CSRFCookie = "csrf_token"
)

// Client talks to the intake backend. Authentication is carried by the
// cookie jar on HTTPClient.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Log        *zap.Logger
}

// New returns a client for baseURL. A nil jar disables cookies and a nil
// logger discards request logs.
func New(baseURL string, jar http.CookieJar, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
			Jar:     jar,
		},
		Log: log,
	}
}

// csrfToken returns the csrf_token cookie for the backend, or "".
func (c *Client) csrfToken() string {
	if c.HTTPClient.Jar == nil {
		return ""
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.HTTPClient.Jar.Cookies(u) {
		if ck.Name == CSRFCookie {
			v, err := url.QueryUnescape(ck.Value)
			if err != nil {
				return ck.Value
			}
			return v
		}
	}
	return ""
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req)
	return req, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set(headerRequestID, uuid.NewString())
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
	default:
		req.Header.Set(headerCSRF, c.csrfToken())
	}
}

func (c *Client) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := hc.Do(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", req.Header.Get(headerRequestID)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		c.Log.Debug("request failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	c.Log.Debug("request", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return c.send(c.HTTPClient, req)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// call performs one request and decodes a 2xx JSON body into out. A nil out
// discards the body.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ResponseError{Reason: "decode body", Err: err}
	}
	return nil
}

// Package firebase talks to a Firebase Realtime Database over its REST and
// streaming (server-sent events) API. It moves sensor records only.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"glovehome/internal/sensorlog"
)

// DefaultPath is the database node the glove writes to.
const DefaultPath = "sensorData"

// StatusError is a non-2xx answer from the database.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("firebase %s %s: %d %s", e.Method, e.Path, e.Code, msg)
}

// Options tunes a Client. The zero value is usable.
type Options struct {
	// HTTPClient serves REST calls. Defaults to a client with a 15s timeout.
	HTTPClient *http.Client
	// StreamClient serves the event stream and must not time out.
	StreamClient *http.Client
	Retry        RetryConfig
}

// Client is a Realtime Database client bound to one database URL.
type Client struct {
	base   *url.URL
	auth   string
	http   *http.Client
	stream *http.Client
	retry  RetryConfig
}

// NewClient returns a client for databaseURL
// (https://<project>-default-rtdb.firebaseio.com). auth, when set, is sent as
// the auth query parameter (database secret or ID token).
func NewClient(databaseURL, auth string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(databaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("database url %q: scheme must be http or https", databaseURL)
	}
	c := &Client{
		base:   u,
		auth:   auth,
		http:   opts.HTTPClient,
		stream: opts.StreamClient,
		retry:  opts.Retry,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.stream == nil {
		c.stream = &http.Client{}
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = DefaultRetryConfig()
	}
	return c, nil
}

// endpoint builds <base>/<path>.json with the given query.
func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.Trim(path, "/") + ".json"
	if q == nil {
		q = url.Values{}
	}
	if c.auth != "" {
		q.Set("auth", c.auth)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte) ([]byte, error) {
	var out []byte
	err := WithRetry(ctx, c.retry, func() error {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), rd)
		if err != nil {
			return permanent(fmt.Errorf("create request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		defer resp.Body.Close()

		out, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 300 {
			serr := &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(out)}
			if IsRetryableHTTPStatus(resp.StatusCode) {
				return serr
			}
			return permanent(serr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Push appends rec under path and returns the generated child key.
func (c *Client) Push(ctx context.Context, path string, rec sensorlog.Record) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return "", err
	}
	var r struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(resp, &r); err != nil {
		return "", fmt.Errorf("decode push response: %w", err)
	}
	return r.Name, nil
}

// LastN returns the newest n records under path, oldest first.
func (c *Client) LastN(ctx context.Context, path string, n int) ([]sensorlog.Record, error) {
	q := url.Values{}
	q.Set("orderBy", `"$key"`)
	if n > 0 {
		q.Set("limitToLast", strconv.Itoa(n))
	}
	resp, err := c.do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	return decodeChildren(resp)
}

// Remove deletes everything under path.
func (c *Client) Remove(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// decodeChildren turns a {key: record} object (or null) into records sorted
// by key, which for pushed children is creation order. A child without its
// own id takes the key.
func decodeChildren(data []byte) ([]sensorlog.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var children map[string]json.RawMessage
	if err := json.Unmarshal(data, &children); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	recs := make([]sensorlog.Record, 0, len(keys))
	for _, k := range keys {
		r, err := decodeChild(k, children[k])
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, nil
}

func decodeChild(key string, raw json.RawMessage) (sensorlog.Record, error) {
	r, err := sensorlog.Decode(raw)
	if err != nil {
		return sensorlog.Record{}, fmt.Errorf("child %s: %w", key, err)
	}
	if r.ID == "" {
		r.ID = key
	}
	return r, nil
}

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const defaultUserAgent = "coinbase-pro-go"

type Config struct {
	URL        string
	APIKey     string
	APISecret  string
	Passphrase string
}

// Observer receives one call per completed HTTP exchange. code is 0 when
// no response was received.
type Observer interface {
	ObserveRequest(method string, code int, duration time.Duration)
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// Client sends signed requests to the exchange REST API. It keeps no
// per-request state and is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
	observer   Observer
	userAgent  string
}

// Response is a successful (2xx) exchange answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}

	return nil
}

// timeNow is swapped in tests for deterministic signatures.
var timeNow = time.Now

func NewClient(config Config, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		config:     config,
		httpClient: httpClient,
		logger:     zap.NewNop(),
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Request performs an authenticated call. path is relative to the configured
// URL, query may be nil and body is JSON encoded unless nil. Non-2xx answers
// are returned as *Error.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	requestPath := path
	if encoded := query.Encode(); encoded != "" {
		requestPath += "?" + encoded
	}

	var bodyStr []byte
	if body != nil {
		var err error
		bodyStr, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.config.URL+requestPath, bytes.NewReader(bodyStr))
	if err != nil {
		return nil, err
	}

	timestamp := timeNow().Unix()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if c.config.APIKey != "" {
		httpReq.Header.Set("CB-ACCESS-KEY", c.config.APIKey)
		httpReq.Header.Set("CB-ACCESS-SIGN", Sign(c.config.APISecret, timestamp, method, requestPath, string(bodyStr)))
		httpReq.Header.Set("CB-ACCESS-TIMESTAMP", strconv.FormatInt(timestamp, 10))
		httpReq.Header.Set("CB-ACCESS-PASSPHRASE", c.config.Passphrase)
	}

	start := time.Now()
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(method, 0, time.Since(start))
		c.logger.Warn("request failed", zap.String("method", method), zap.String("path", requestPath), zap.Error(err))
		return nil, err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	elapsed := time.Since(start)
	c.observe(method, res.StatusCode, elapsed)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("path", requestPath),
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", elapsed),
	)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Warn("unexpected status",
			zap.String("method", method),
			zap.String("path", requestPath),
			zap.Int("status", res.StatusCode),
			zap.ByteString("body", resBody),
		)
		return nil, newError(method, requestPath, res.StatusCode, resBody)
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       resBody,
	}, nil
}

func (c *Client) observe(method string, code int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, code, d)
	}
}

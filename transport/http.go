// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/pubsub/lib/netutil"
)

// DefaultTimeout bounds requests that set no Timeout of their own.
const DefaultTimeout = 10 * time.Second

// HTTPConfig configures an HTTPTransport.
type HTTPConfig struct {
	// Origin is the service base URL, e.g. "https://ps.pndsn.com".
	Origin string

	// Client sends the requests. When nil, a client with its own
	// connection pool dialing through Dialer is created.
	Client *http.Client

	// Dialer opens connections for the default client. Nil uses
	// TCPDialer with a ten-second connect timeout.
	Dialer Dialer

	// Timeout replaces DefaultTimeout.
	Timeout time.Duration

	// UserAgent is sent on every request when set.
	UserAgent string

	Logger *slog.Logger
}

// HTTPTransport is the production Transport over net/http.
type HTTPTransport struct {
	origin    *url.URL
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport validates config and returns a ready transport.
func NewHTTPTransport(config HTTPConfig) (*HTTPTransport, error) {
	if config.Origin == "" {
		return nil, fmt.Errorf("transport: origin is required")
	}
	origin, err := url.Parse(strings.TrimSuffix(config.Origin, "/"))
	if err != nil {
		return nil, fmt.Errorf("transport: invalid origin %q: %w", config.Origin, err)
	}
	if origin.Scheme != "http" && origin.Scheme != "https" {
		return nil, fmt.Errorf("transport: origin %q must be an http or https URL", config.Origin)
	}

	client := config.Client
	if client == nil {
		dialer := config.Dialer
		if dialer == nil {
			dialer = &TCPDialer{Timeout: 10 * time.Second}
		}
		client = &http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     5 * time.Minute,
			TLSHandshakeTimeout: 10 * time.Second,
		}}
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPTransport{
		origin:    origin,
		client:    client,
		timeout:   timeout,
		userAgent: config.UserAgent,
		logger:    logger,
	}, nil
}

// Execute sends request and returns its 2xx response, or a typed error.
func (t *HTTPTransport) Execute(ctx context.Context, request Request) (*Response, error) {
	timeout := request.Timeout
	if timeout <= 0 {
		timeout = t.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := request.Method
	if method == "" {
		method = http.MethodGet
	}

	unescapedPath, err := url.PathUnescape(request.Path)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid path %q: %w", request.Path, err)
	}
	requestURL := *t.origin
	requestURL.Path = t.origin.Path + unescapedPath
	requestURL.RawPath = t.origin.EscapedPath() + request.Path
	requestURL.RawQuery = request.Query.Encode()

	var body io.Reader
	if request.Body != nil {
		body = bytes.NewReader(request.Body)
	}
	httpRequest, err := http.NewRequestWithContext(ctx, method, requestURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("transport: building %s %s: %w", method, request.Path, err)
	}
	for key, values := range request.Header {
		for _, value := range values {
			httpRequest.Header.Add(key, value)
		}
	}
	if request.Body != nil && httpRequest.Header.Get("Content-Type") == "" {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	httpRequest.Header.Set("Accept-Encoding", "gzip")
	if t.userAgent != "" {
		httpRequest.Header.Set("User-Agent", t.userAgent)
	}

	response, err := t.client.Do(httpRequest)
	if err != nil {
		return nil, &TransportError{Method: method, Path: request.Path, Err: err}
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadEncoded(response.Body, response.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, &TransportError{Method: method, Path: request.Path, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return &Response{StatusCode: response.StatusCode, Header: response.Header, Body: responseBody}, nil
	}

	statusErr := statusError(response.StatusCode, response.Header, responseBody)
	t.logger.Debug("request failed",
		"method", method,
		"path", request.Path,
		"status", response.StatusCode,
		"body", netutil.ErrorBody(responseBody),
	)
	return nil, statusErr
}

// errorBody is the JSON shape of service error responses.
type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   bool   `json:"error"`
	Service string `json:"service"`
	Payload struct {
		Channels      []string `json:"channels"`
		ChannelGroups []string `json:"channel-groups"`
	} `json:"payload"`
}

// statusError turns a non-2xx response into AccessDeniedError or
// ServiceError.
func statusError(status int, header http.Header, body []byte) error {
	var decoded errorBody
	message := http.StatusText(status)
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Message != "" {
		message = decoded.Message
	} else if len(body) > 0 && err != nil {
		message = netutil.ErrorBody(body)
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &AccessDeniedError{
			StatusCode: status,
			Message:    message,
			Channels:   decoded.Payload.Channels,
			Groups:     decoded.Payload.ChannelGroups,
		}
	}

	serviceErr := &ServiceError{StatusCode: status, Message: message}
	if status == http.StatusTooManyRequests {
		serviceErr.Delay = parseRetryAfter(header.Get("Retry-After"))
	}
	return serviceErr
}

// parseRetryAfter accepts the delay-seconds form of Retry-After. The
// service never sends the HTTP-date form.
func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bureau-foundation/homewire/lib/clock"
	"github.com/bureau-foundation/homewire/lib/envelope"
	"github.com/bureau-foundation/homewire/lib/secret"
)

// DefaultCallTimeout bounds a call whose context carries no deadline.
const DefaultCallTimeout = 30 * time.Second

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// Endpoint is the base URL of the controller (e.g.,
	// "http://192.168.1.40"). Calls go to <Endpoint>/ws/<service>.
	Endpoint string

	// CookieName is the session cookie name. Defaults to "session".
	CookieName string

	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger

	// LogSensitive allows session cookies and tokens to appear in logs
	// and call records. Passwords are redacted regardless.
	LogSensitive bool

	// Observer receives a record of every call. If nil, records go to
	// a LogObserver on Logger.
	Observer CallObserver

	// Codec encodes and decodes envelopes. If nil, the client creates
	// its own; pass one to share a schema cache between clients.
	Codec *envelope.Codec

	// CallTimeout bounds calls whose context has no deadline. Defaults
	// to DefaultCallTimeout.
	CallTimeout time.Duration

	// Clock times calls. If nil, clock.Real() is used.
	Clock clock.Clock
}

// Client is an unauthenticated controller client. It holds the
// endpoint, HTTP transport, and envelope codec shared by its Sessions.
type Client struct {
	endpoint     string
	cookieName   string
	httpClient   *http.Client
	logger       *slog.Logger
	logSensitive bool
	observer     CallObserver
	codec        *envelope.Codec
	callTimeout  time.Duration
	clock        clock.Clock
}

// NewClient validates config and creates a client. No network traffic
// happens until Authenticate.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Endpoint == "" {
		return nil, &ValidationError{Field: "endpoint", Reason: "required"}
	}
	parsed, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, &ValidationError{Field: "endpoint", Reason: err.Error()}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &ValidationError{Field: "endpoint", Reason: fmt.Sprintf("scheme must be http or https, got %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return nil, &ValidationError{Field: "endpoint", Reason: "missing host"}
	}

	client := &Client{
		endpoint:     strings.TrimRight(config.Endpoint, "/"),
		cookieName:   config.CookieName,
		httpClient:   config.HTTPClient,
		logger:       config.Logger,
		logSensitive: config.LogSensitive,
		observer:     config.Observer,
		codec:        config.Codec,
		callTimeout:  config.CallTimeout,
		clock:        config.Clock,
	}
	if client.cookieName == "" {
		client.cookieName = DefaultCookieName
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}
	if client.observer == nil {
		client.observer = LogObserver{Logger: client.logger}
	}
	if client.codec == nil {
		client.codec = envelope.NewCodec()
	}
	if client.callTimeout <= 0 {
		client.callTimeout = DefaultCallTimeout
	}
	if client.clock == nil {
		client.clock = clock.Real()
	}
	return client, nil
}

// Codec returns the client's envelope codec.
func (c *Client) Codec() *envelope.Codec { return c.codec }

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's pool. The watch source calls this after a connection
// error so the next poll opens a fresh socket.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Credentials identify the caller to the controller. Application names
// the client program in the controller's session list.
type Credentials struct {
	Username    string
	Password    *secret.Buffer
	Application string
}

// Authenticate opens a session. The password Buffer is read but not
// closed; the caller retains ownership. The caller must Close the
// returned Session.
func (c *Client) Authenticate(ctx context.Context, credentials Credentials) (*Session, error) {
	if credentials.Username == "" {
		return nil, &ValidationError{Field: "username", Reason: "required"}
	}
	if credentials.Password == nil {
		return nil, &ValidationError{Field: "password", Reason: "required"}
	}
	if credentials.Application == "" {
		return nil, &ValidationError{Field: "application", Reason: "required"}
	}

	session := &Session{
		client: c,
		cookie: newCookieGuard(c.logger, c.logSensitive),
	}

	// Password is converted to string at the envelope boundary. The heap
	// copy is short-lived and the call record never carries it.
	request := AuthenticateRequest{
		UserName:    credentials.Username,
		Password:    credentials.Password.String(),
		Application: credentials.Application,
	}
	var response AuthenticateResponse
	if err := c.invoke(ctx, session.cookie, opAuthenticate, request, &response); err != nil {
		session.Close()
		return nil, fmt.Errorf("controller: authenticate: %w", err)
	}
	if !response.Result {
		session.Close()
		return nil, ErrAuthenticationRejected
	}
	if _, ok := session.cookie.Get(); !ok {
		session.Close()
		return nil, fmt.Errorf("controller: authenticate: no %q cookie in response", c.cookieName)
	}

	c.logger.Info("controller session opened",
		"endpoint", c.endpoint,
		"username", credentials.Username,
		"application", credentials.Application,
	)
	return session, nil
}

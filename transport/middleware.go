// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// TokenSource supplies the current access token. An empty token means
// none is attached.
type TokenSource interface {
	Token() string
}

// Middleware stamps every request with the identity parameters the
// service expects and logs each call at debug level.
type Middleware struct {
	Next Transport

	// UserID is sent as the "uuid" query parameter.
	UserID string

	// Tokens, when set, supplies the "auth" query parameter.
	Tokens TokenSource

	// InstanceID identifies this client instance across requests. When
	// empty, NewMiddleware generates one.
	InstanceID string

	// SDK is sent as the "pnsdk" query parameter when set.
	SDK string

	Logger *slog.Logger
}

// NewMiddleware wraps next with a fresh instance id.
func NewMiddleware(next Transport, userID string, tokens TokenSource, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		Next:       next,
		UserID:     userID,
		Tokens:     tokens,
		InstanceID: uuid.NewString(),
		Logger:     logger,
	}
}

// Execute adds the identity parameters and forwards to Next. The
// caller's Query is not modified.
func (m *Middleware) Execute(ctx context.Context, request Request) (*Response, error) {
	query := cloneQuery(request.Query)
	if m.UserID != "" {
		query.Set("uuid", m.UserID)
	}
	if m.Tokens != nil {
		if token := m.Tokens.Token(); token != "" {
			query.Set("auth", token)
		}
	}
	if m.InstanceID != "" {
		query.Set("instanceid", m.InstanceID)
	}
	if m.SDK != "" {
		query.Set("pnsdk", m.SDK)
	}
	requestID := uuid.NewString()
	query.Set("requestid", requestID)
	request.Query = query

	started := time.Now()
	response, err := m.Next.Execute(ctx, request)
	logger := m.logger()
	if err != nil {
		logger.Debug("request failed",
			"request_id", requestID,
			"path", request.Path,
			"elapsed", time.Since(started),
			"error", err,
		)
		return nil, err
	}
	logger.Debug("request completed",
		"request_id", requestID,
		"path", request.Path,
		"status", response.StatusCode,
		"elapsed", time.Since(started),
	)
	return response, nil
}

func (m *Middleware) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport executes REST requests against the pub/sub service.
//
// Everything above this package speaks in [Request] and [Response]
// values and the [Transport] interface; nothing above it imports
// net/http. That keeps the event engines testable with in-memory
// transports and lets applications substitute their own HTTP stack.
//
// [HTTPTransport] is the production implementation. It resolves
// request paths against the configured origin, applies a per-request
// deadline (long-poll receives need one far longer than ordinary
// calls), asks for gzip and decodes it with klauspost/compress, bounds
// body reads, and turns non-2xx responses into typed errors:
//
//   - [AccessDeniedError] for 401 and 403. Never retried.
//   - [ServiceError] for every other non-2xx status, carrying the
//     status code, the service's message and, for 429, the requested
//     Retry-After delay.
//   - [TransportError] for failures below HTTP: dial errors, resets,
//     timeouts, truncated bodies.
//
// [ProtocolError] is produced by decoders above this package when a
// 2xx body is not what the endpoint promises.
//
// Each error type implements Failure() so [retry.Classify] can sort it
// without knowing about this package.
//
// [Middleware] wraps a Transport and stamps every request with the
// query parameters the service expects on all calls: the user id, the
// current access token, a per-request id, and the SDK instance id.
package transport

// Package countries provides the HTTP client for the country explorer API.
//
// # Overview
//
// This package is the Remote Data Gateway: typed request functions for the
// paginated country listing, the seven search endpoints, authentication, and
// the per-user favorites list. It holds no state beyond its configuration.
//
// # Endpoints
//
//   - GET    /api/countries/all?page=P&limit=L
//   - GET    /api/countries/{kind}/{query}
//   - POST   /api/auth/login
//   - POST   /api/auth/register
//   - GET    /api/auth/me
//   - GET    /api/favorites
//   - POST   /api/favorites
//   - DELETE /api/favorites/{code}
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and a User-Agent
//   - Carry an X-Request-ID (UUIDv7) that is also logged
//   - Attach "Authorization: Bearer <token>" when the TokenSource has one
//
// The token is read per request, so a session change is picked up by the
// next call without rebuilding the client.
//
// # Error Handling
//
// Responses with status >= 400 become *APIError. When the body carries a
// JSON "message" field it is kept for display (see UserMessage).
// Transport and decode failures are wrapped with context:
//
//   - "execute request: dial tcp: connection refused"
//   - "api GET /api/favorites returned status 401: invalid token"
//   - "decode response: unexpected EOF"
//
// The client never retries; callers own rollback and retry policy.
package countries

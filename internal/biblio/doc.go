// Package biblio provides an HTTP client for the library backend API.
//
// # Overview
//
// The client covers authentication, users, the book/author/exemplar catalog,
// loans, reading groups and room schedules. It handles HTTP communication,
// JSON serialization and the typed representation of the backend's entities.
//
//   - client.go: API interface, Client and request handling
//   - types.go: entities and request payloads as the backend speaks them
//   - errors.go: APIError for non-2xx responses
//
// # Client Usage
//
//	sess := session.New()
//	client, err := biblio.NewClient("https://biblio.example.net/api",
//		biblio.WithTokenSource(sess),
//		biblio.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//	loans, err := client.ListActiveLoans(ctx, 0)
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation
//   - Set Accept: application/json and a lector User-Agent
//   - Carry a fresh X-Request-ID for correlation with server logs
//   - Send Authorization: Bearer <token> when the token source holds one
//
// The token is read at the start of each call. A logout that lands while a
// call is in flight leaves that call with a stale token; the backend answers
// 401/403 and the caller sees an ordinary APIError.
//
// # Error Handling
//
//   - "execute request: ..." wraps network failures (refused, timeout, DNS)
//   - *APIError reports 4xx/5xx with the server's message
//   - "decode response: ..." wraps malformed JSON
//
// The client never retries. Mapping errors to user-facing categories is the
// job of package failure.
//
// # Dates
//
// Loan dates travel as YYYY-MM-DD strings. ParseDate also accepts RFC 3339
// timestamps; callers decide what an unparsable date means.
package biblio

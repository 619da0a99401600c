// Package devserver is an in-memory library backend speaking the same REST
// dialect as the production server.
//
// It exists so the client can be exercised end to end without a database:
// package tests start it behind httptest.NewServer, and the lector-devserver
// command serves it on a local port for trying the TUI.
//
// # Rules
//
// The server enforces the backend behaviour the client depends on:
//
//   - POST /auth/login issues an HS256 JWT; bad credentials return 401
//   - every other route needs a bearer token; logout revokes it
//   - mutations are admin only (403), except editing or joining as yourself
//     and returning your own loans
//   - nick, NIF and email are unique; a collision returns 409 naming the field
//   - an admin cannot delete their own account (403)
//   - an exemplar has at most one active loan; a second one returns 409
//   - creating a loan marks the exemplar prestat, returning it marks it lliure
//
// Passwords are stored as bcrypt hashes. Nothing is persisted.
package devserver

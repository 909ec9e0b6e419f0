// Package client contains the client-side building blocks for the AI
// accountant CLI.
//
// # Overview
//
//  1. Client is the API contract: account calls (Register, Login, Refresh,
//     Logout, DeleteAccount), session history, Ask and transcript export.
//  2. HTTPClient implements it over the JSON REST API. It attaches the bearer
//     token, refreshes an expired pair once on 401 and retries, and reports
//     new pairs through OnTokens so they can be persisted.
//  3. InitDatabase and RunMigrations open the local SQLite state database and
//     apply the embedded goose migrations.
//
// # Error Handling
//
// Non-2xx answers become *APIError, which unwraps to a sentinel
// (ErrUnauthorized, ErrNotFound, ErrUsernameTaken, ErrValidation,
// ErrRateLimited, ErrServer, ErrUnavailable). Transport failures wrap
// ErrUnavailable.
package client

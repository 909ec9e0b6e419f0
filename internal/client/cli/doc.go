// Package cli implements the aiaccountant terminal client on top of cobra.
//
// Commands share one lazily opened App: the local state database (login
// session and tokens), the HTTP API client and the auth service. Account
// commands are register, login, logout, whoami and delete-account; session
// commands are sessions, new, rename, rm, show, ask, chat and export.
//
// The chat command runs a small read-eval-print loop (see runChat) that sends
// each line to the session and prints the accountant's answer.
package cli

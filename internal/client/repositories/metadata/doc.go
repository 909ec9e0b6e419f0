// Package metadata is the client's key/value state store. It keeps the
// signed-in username and the current token pair in the local SQLite
// database so that consecutive CLI invocations share a login.
package metadata

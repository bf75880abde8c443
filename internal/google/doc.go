// Package google provides OAuth2 authorization and credential storage for the
// Google Calendar API.
//
// A credential is a refresh token persisted as an "authorized_user" JSON file.
// When the file is absent, the Authorizer runs an interactive loopback flow:
// it prints a consent URL, waits for Google to redirect back to a local
// listener, exchanges the code and saves the result for the next start.
//
// The TokenProvider interface lets callers choose between the interactive
// Authorizer (CLI chat and auth commands) and the load-only FileTokenProvider
// (MCP stdio server, where stdout belongs to the protocol).
package google

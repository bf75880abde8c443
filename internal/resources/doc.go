// Package resources provides MCP resources. Resources are read-only data
// sources that MCP clients can fetch; the operator profile tells a client
// whose calendar is being scheduled and within which hours.
package resources

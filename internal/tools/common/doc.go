// Package common provides helpers shared by the MCP tool packages, such as
// the wrapper that records metrics for every tool invocation.
package common

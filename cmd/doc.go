// Package cmd implements the command-line interface for meetingscheduler.
//
// This package provides the following commands:
//   - chat: Interactive shell that schedules meetings (default)
//   - auth: Run the Google authorization flow and store the credential
//   - serve: Start the MCP server exposing the calendar reader
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all tools
//
// Settings are resolved from defaults, an optional YAML profile, environment
// variables and flags, in increasing order of precedence.
package cmd

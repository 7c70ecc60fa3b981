// Package mcp turns remote MCP (Model Context Protocol) servers into a
// capability source. Each configured server is connected at startup, its
// tools are discovered once and registered in the capability registry under
// their own names, and invocations are proxied through the server's client
// session.
//
// The package wraps the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk). Servers are reached over SSE or
// streamable HTTP, optionally authenticated with a static key or an OAuth 2.0
// client_credentials grant.
package mcp

// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/zeebo/errs"
)

// ErrUnknownTool is returned by Dispatch for tool names not in the catalog.
var ErrUnknownTool = errs.Class("unknown tool")

// Definition pairs a tool descriptor with the handler that serves it.
type Definition struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// Registry is a fixed mapping from tool name to handler. The catalog order
// is the registration order.
type Registry struct {
	defs     []Definition
	handlers map[string]server.ToolHandlerFunc
}

// NewRegistry creates a Registry from definitions.
func NewRegistry(defs ...Definition) *Registry {
	registry := &Registry{
		defs:     defs,
		handlers: make(map[string]server.ToolHandlerFunc, len(defs)),
	}
	for _, def := range defs {
		registry.handlers[def.Tool.Name] = def.Handler
	}
	return registry
}

// Catalog returns the tool descriptors in registration order.
func (registry *Registry) Catalog() []mcp.Tool {
	catalog := make([]mcp.Tool, 0, len(registry.defs))
	for _, def := range registry.defs {
		catalog = append(catalog, def.Tool)
	}
	return catalog
}

// Dispatch routes a call to the handler registered under its tool name.
// Unregistered names fail before any storage access happens.
func (registry *Registry) Dispatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handler, ok := registry.handlers[request.Params.Name]
	if !ok {
		return nil, ErrUnknownTool.New("%s", request.Params.Name)
	}
	return handler(ctx, request)
}

// AttachTo registers every catalog tool on an MCP server.
func (registry *Registry) AttachTo(mcpServer *server.MCPServer) {
	for _, def := range registry.defs {
		mcpServer.AddTool(def.Tool, def.Handler)
	}
}

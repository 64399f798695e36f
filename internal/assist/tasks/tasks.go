// Package tasks provides an [assist.Provider] that reads the user's open
// task list from an MCP tool server.
//
// It connects via stdio or streamable-HTTP transports using the official MCP
// Go SDK and calls a single configured tool per snippet request.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/baraagh52-hue/Assistan-Trae/internal/assist"
)

// defaultTool is the tool called when Config.Tool is empty.
const defaultTool = "list_tasks"

// Config describes how to reach the task server.
type Config struct {
	// Command launches a stdio MCP server; it is split on spaces into
	// executable + args. Mutually exclusive with URL.
	Command string

	// URL is the endpoint of a streamable-HTTP MCP server. Mutually
	// exclusive with Command.
	URL string

	// Tool is the name of the tool that returns the open task list.
	// Default: "list_tasks".
	Tool string
}

// Provider is an [assist.Provider] backed by a live MCP session.
type Provider struct {
	session *mcpsdk.ClientSession
	tool    string
}

// Compile-time interface assertion.
var _ assist.Provider = (*Provider)(nil)

// Connect establishes the MCP session described by cfg. The session stays
// open until [Provider.Close].
func Connect(ctx context.Context, cfg Config) (*Provider, error) {
	var transport mcpsdk.Transport
	switch {
	case cfg.Command != "" && cfg.URL != "":
		return nil, errors.New("tasks: Command and URL are mutually exclusive")
	case cfg.Command != "":
		parts := strings.Fields(cfg.Command)
		transport = &mcpsdk.CommandTransport{
			Command: exec.CommandContext(ctx, parts[0], parts[1:]...),
		}
	case cfg.URL != "":
		transport = &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
	default:
		return nil, errors.New("tasks: either Command or URL is required")
	}

	client := mcpsdk.NewClient(
		&mcpsdk.Implementation{Name: "assistan-trae-tasks", Version: "1.0.0"},
		nil,
	)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("tasks: connect to task server: %w", err)
	}

	tool := cfg.Tool
	if tool == "" {
		tool = defaultTool
	}
	return &Provider{session: session, tool: tool}, nil
}

// Name implements [assist.Provider].
func (p *Provider) Name() string { return "open tasks" }

// Snippet implements [assist.Provider]. It calls the configured tool with no
// arguments and returns the concatenated text content.
func (p *Provider) Snippet(ctx context.Context) (string, error) {
	result, err := p.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: p.tool})
	if err != nil {
		return "", fmt.Errorf("tasks: call %q: %w", p.tool, err)
	}

	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	if result.IsError {
		return "", fmt.Errorf("tasks: tool %q reported: %s", p.tool, sb.String())
	}
	return sb.String(), nil
}

// Close shuts down the MCP session.
func (p *Provider) Close() error {
	return p.session.Close()
}

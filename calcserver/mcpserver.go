package calcserver

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer exposes a registry over the MCP protocol.
func NewMCPServer(reg *tools.Registry) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)

	ctx := context.Background()

	defs, err := reg.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		schema, err := json.Marshal(def.InputSchema)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal schema for tool %q", def.Name)
		}
		tool := mcp.NewToolWithRawSchema(def.Name, def.Description, schema)
		s.AddTool(tool, toolHandler(reg, def.Name))
	}

	resources, err := reg.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	for _, res := range resources {
		r := mcp.NewResource(res.URI, res.Name,
			mcp.WithResourceDescription(res.Description),
			mcp.WithMIMEType(res.MIMEType),
		)
		s.AddResource(r, resourceHandler(reg, res.URI))
	}

	promptDefs, err := reg.ListPrompts(ctx)
	if err != nil {
		return nil, err
	}
	for _, def := range promptDefs {
		opts := []mcp.PromptOption{mcp.WithPromptDescription(def.Description)}
		for _, arg := range def.Arguments {
			argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(arg.Description)}
			if arg.Required {
				argOpts = append(argOpts, mcp.RequiredArgument())
			}
			opts = append(opts, mcp.WithArgument(arg.Name, argOpts...))
		}
		s.AddPrompt(mcp.NewPrompt(def.Name, opts...), promptServerHandler(reg, def.Name))
	}

	return s, nil
}

// ServeStdio builds the MCP server for the registry and serves it on
// stdin/stdout until the client disconnects.
func ServeStdio(reg *tools.Registry) error {
	s, err := NewMCPServer(reg)
	if err != nil {
		return err
	}
	return server.ServeStdio(s)
}

func toolHandler(reg *tools.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := reg.CallTool(ctx, name, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if res.IsError {
			return mcp.NewToolResultError(res.Content), nil
		}
		return mcp.NewToolResultText(res.Content), nil
	}
}

func resourceHandler(reg *tools.Registry, uri string) server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		contents, err := reg.ReadResource(ctx, uri)
		if err != nil {
			return nil, err
		}
		out := make([]mcp.ResourceContents, 0, len(contents))
		for _, c := range contents {
			if c.Blob != "" {
				out = append(out, mcp.BlobResourceContents{
					URI:      c.URI,
					MIMEType: c.MIMEType,
					Blob:     c.Blob,
				})
				continue
			}
			out = append(out, mcp.TextResourceContents{
				URI:      c.URI,
				MIMEType: c.MIMEType,
				Text:     c.Text,
			})
		}
		return out, nil
	}
}

func promptServerHandler(reg *tools.Registry, name string) server.PromptHandlerFunc {
	return func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		messages, err := reg.GetPrompt(ctx, name, request.Params.Arguments)
		if err != nil {
			return nil, err
		}
		out := make([]mcp.PromptMessage, 0, len(messages))
		for _, m := range messages {
			out = append(out, mcp.NewPromptMessage(mcp.Role(m.Role), mcp.NewTextContent(m.Content)))
		}
		return mcp.NewGetPromptResult(name, out), nil
	}
}

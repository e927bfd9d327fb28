package toolprovider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	"docuchat/internal/config"
)

// Provider talks to an external MCP server that offers format-specific
// extraction and OCR tools the pipeline cannot perform locally.
type Provider struct {
	client *client.Client
	tool   string
}

// New spawns the configured MCP server over stdio and completes the
// initialize handshake.
func New(ctx context.Context, cfg config.ToolsConfig) (*Provider, error) {
	c, err := client.NewStdioMCPClient(cfg.Command, nil, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("start tool provider: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "docuchat",
		Version: "0.1.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize tool provider: %w", err)
	}

	log.Info().Str("command", cfg.Command).Str("tool", cfg.ExtractTool).
		Msg("tool provider connected")
	return &Provider{client: c, tool: cfg.ExtractTool}, nil
}

// Extract asks the provider to convert raw bytes into plain text. The call
// is idempotent and side-effect-free from the pipeline's perspective.
func (p *Provider) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = p.tool
	req.Params.Arguments = map[string]any{
		"data":      base64.StdEncoding.EncodeToString(data),
		"mime_type": mimeType,
	}

	result, err := p.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("tool call %s: %w", p.tool, err)
	}

	var text strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	if result.IsError {
		return "", errors.New("tool provider error: " + text.String())
	}
	return text.String(), nil
}

func (p *Provider) Close() error {
	return p.client.Close()
}

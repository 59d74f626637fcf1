package mcp

import (
	"context"
	"fmt"

	"cheque-bot/internal/usecase"

	"github.com/goccy/go-json"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// NewServer creates an MCP server with every tool registered
func NewServer(uc usecase.RedeemUsecase, version string, log *zap.Logger) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		"cheque-bot",
		version,
		server.WithLogging(),
		server.WithToolCapabilities(true),
	)
	if err := Register(s, uc, log); err != nil {
		return nil, err
	}
	return s, nil
}

// Register adds the tools to s
func Register(s *server.MCPServer, uc usecase.RedeemUsecase, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	for _, tool := range Tools() {
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return fmt.Errorf("failed to marshal schema of %s: %w", tool.Name, err)
		}

		name := tool.Name
		s.AddTool(mcplib.NewToolWithRawSchema(name, tool.Description, schema), func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
			log.Info("[MCP] tool call", zap.String("tool", name))
			text, err := CallTool(ctx, uc, name, req.GetArguments())
			if err != nil {
				log.Warn("[MCP] tool failed", zap.String("tool", name), zap.Error(err))
				return mcplib.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
			}
			return mcplib.NewToolResultText(text), nil
		})
	}
	return nil
}

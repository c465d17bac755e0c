package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
)

// registerTools exposes the workstation's own conversation state as
// in-process tools, so the AI backend can ask "what am I working on"
// without a round-trip to the workstation's control surface.
func registerTools(s *server.MCPServer, st *store.Store, log *logger.Logger) {
	s.AddTool(
		mcp.NewTool("list_workspaces",
			mcp.WithDescription("List all workspaces known to this workstation."),
		),
		listWorkspacesHandler(st, log),
	)

	s.AddTool(
		mcp.NewTool("list_conversations",
			mcp.WithDescription("List conversations in a workspace."),
			mcp.WithString("workspace_id",
				mcp.Required(),
				mcp.Description("The workspace ID to list conversations from"),
			),
		),
		listConversationsHandler(st, log),
	)

	s.AddTool(
		mcp.NewTool("get_conversation",
			mcp.WithDescription("Get a conversation's status and recent log entries by entity id."),
			mcp.WithString("entity_id",
				mcp.Required(),
				mcp.Description("The conversation's entity id"),
			),
		),
		getConversationHandler(st, log),
	)

	log.Info("registered mcp tools", zap.Int("count", 3))
}

func listWorkspacesHandler(st *store.Store, log *logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := st.Snapshot()
		formatted, err := json.MarshalIndent(snap.Workspaces, "", "  ")
		if err != nil {
			log.Error("marshal workspaces", zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("failed to list workspaces: %v", err)), nil
		}
		return mcp.NewToolResultText(string(formatted)), nil
	}
}

func listConversationsHandler(st *store.Store, log *logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		workspaceID, err := req.RequireString("workspace_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		ws, err := st.Workspace(workspaceID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list conversations: %v", err)), nil
		}

		formatted, err := json.MarshalIndent(ws.Conversations(), "", "  ")
		if err != nil {
			log.Error("marshal conversations", zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("failed to list conversations: %v", err)), nil
		}
		return mcp.NewToolResultText(string(formatted)), nil
	}
}

func getConversationHandler(st *store.Store, log *logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entityID, err := req.RequireString("entity_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		c, err := st.Conversation(entityID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get conversation: %v", err)), nil
		}

		formatted, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			log.Error("marshal conversation", zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("failed to get conversation: %v", err)), nil
		}
		return mcp.NewToolResultText(string(formatted)), nil
	}
}

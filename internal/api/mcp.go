package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/papersift/internal/storage"
)

// MCPStore is the store surface the MCP tools read from.
type MCPStore interface {
	SourceReader
	RecentSources(collection string, limit int) ([]storage.SourceEntry, error)
}

// NewMCPServer creates an MCP server exposing the classified source
// collections as tools and resources.
func NewMCPServer(store MCPStore) *server.MCPServer {
	s := server.NewMCPServer(
		"papersift",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("papersift — literature monitor collecting paragraphs relevant to a research topic."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_sources",
			mcp.WithDescription("Search collected sources by filename, URL, or paragraph text."),
			mcp.WithString("query", mcp.Description("Search text"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearchSources(store),
	)

	s.AddTool(
		mcp.NewTool("list_sources",
			mcp.WithDescription("List entries from the relevant or non-relevant collection in insertion order."),
			mcp.WithString("collection", mcp.Description("Collection name: relevant or non_relevant (default relevant)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 20)")),
		),
		mcpListSources(store),
	)

	s.AddTool(
		mcp.NewTool("collection_stats",
			mcp.WithDescription("Report how many snapshots and classified entries the store holds."),
		),
		mcpCollectionStats(store),
	)

	s.AddResource(
		mcp.NewResource(
			"sources://recent",
			"Recent Relevant Sources",
			mcp.WithResourceDescription("Last 10 entries of the relevant collection as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(store),
	)

	return s
}

func mcpSearchSources(store MCPStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 50 {
			limit = 50
		}

		entries, err := store.SearchSources(query, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcpSourceList(entries)
	}
}

func mcpListSources(store MCPStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection := req.GetString("collection", storage.CollectionRelevant)
		if collection != storage.CollectionRelevant && collection != storage.CollectionNonRelevant {
			return mcpError(fmt.Sprintf("unknown collection %q", collection)), nil
		}

		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}

		entries, err := store.ListSources(collection, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list sources: %v", err)), nil
		}
		return mcpSourceList(entries)
	}
}

func mcpCollectionStats(store MCPStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := store.GetStats()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read stats: %v", err)), nil
		}

		b, err := json.Marshal(map[string]int{
			"snapshots":    stats.Snapshots,
			"relevant":     stats.Relevant,
			"non_relevant": stats.NonRelevant,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(store MCPStore) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries, err := store.RecentSources(storage.CollectionRelevant, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent sources: %w", err)
		}

		b, err := json.Marshal(toSourceJSON(entries))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sources: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpSourceList(entries []storage.SourceEntry) (*mcp.CallToolResult, error) {
	if len(entries) == 0 {
		return mcpText("[]"), nil
	}
	b, err := json.Marshal(toSourceJSON(entries))
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

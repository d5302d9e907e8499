package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/papersift/internal/storage"
)

// --- helpers ---

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

// --- tests ---

func TestMCPSearchSources(t *testing.T) {
	store := newTestStore(t)
	addEntry(t, store, storage.CollectionRelevant, "paper.txt", "", "AURKA inhibition in tumor cells")

	handler := mcpSearchSources(store)
	result, err := handler(context.Background(), makeCallToolRequest("search_sources", map[string]interface{}{
		"query": "AURKA",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var entries []sourceJSON
	if err := json.Unmarshal([]byte(toolText(t, result)), &entries); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(entries) != 1 || entries[0].Filename != "paper.txt" {
		t.Errorf("entries = %+v, want single paper.txt match", entries)
	}
}

func TestMCPSearchSources_MissingQuery(t *testing.T) {
	handler := mcpSearchSources(newTestStore(t))
	result, err := handler(context.Background(), makeCallToolRequest("search_sources", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for missing query")
	}
}

func TestMCPListSources_EmptyCollection(t *testing.T) {
	handler := mcpListSources(newTestStore(t))
	result, err := handler(context.Background(), makeCallToolRequest("list_sources", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := toolText(t, result); got != "[]" {
		t.Errorf("result = %q, want []", got)
	}
}

func TestMCPListSources_UnknownCollection(t *testing.T) {
	handler := mcpListSources(newTestStore(t))
	result, err := handler(context.Background(), makeCallToolRequest("list_sources", map[string]interface{}{
		"collection": "bogus",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for unknown collection")
	}
}

func TestMCPCollectionStats(t *testing.T) {
	store := newTestStore(t)
	addEntry(t, store, storage.CollectionRelevant, "a.txt", "", "kinase")

	handler := mcpCollectionStats(store)
	result, err := handler(context.Background(), makeCallToolRequest("collection_stats", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var stats map[string]int
	if err := json.Unmarshal([]byte(toolText(t, result)), &stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats["relevant"] != 1 {
		t.Errorf("relevant = %d, want 1", stats["relevant"])
	}
}

func TestMCPResourceRecent(t *testing.T) {
	store := newTestStore(t)
	addEntry(t, store, storage.CollectionRelevant, "a.txt", "", "first")
	addEntry(t, store, storage.CollectionRelevant, "b.txt", "", "second")

	handler := mcpResourceRecent(store)
	contents, err := handler(context.Background(), makeReadResourceRequest("sources://recent"))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}

	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var entries []sourceJSON
	if err := json.Unmarshal([]byte(text.Text), &entries); err != nil {
		t.Fatalf("decoding contents: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Most recent first.
	if entries[0].Filename != "b.txt" {
		t.Errorf("first entry = %s, want b.txt", entries[0].Filename)
	}
}

package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexDocumentsTool returns the tool definition for index_documents
func indexDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_documents",
		Description: "Add or update documents in the search index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"documents": map[string]interface{}{
					"type":        "array",
					"description": "Documents to index",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"path": map[string]interface{}{
								"type":        "string",
								"description": "Unique document identifier",
							},
							"content": map[string]interface{}{
								"type":        "string",
								"description": "Document text content",
							},
							"metadata": map[string]interface{}{
								"type":        "object",
								"description": "Optional string key/value metadata",
							},
						},
						"required": []string{"path", "content"},
					},
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "insert fails on existing paths; upsert overwrites",
					"enum":        []string{"insert", "upsert"},
					"default":     "upsert",
				},
			},
			Required: []string{"documents"},
		},
	}
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Search indexed documents with keyword, semantic, or hybrid ranking",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy",
					"enum":        []string{"lexical", "semantic", "hybrid"},
					"default":     "hybrid",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"path_filters": map[string]interface{}{
					"type":        "array",
					"description": "Substrings; a document matches when its path contains any of them",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"query"},
		},
	}
}

// deleteDocumentTool returns the tool definition for delete_document
func deleteDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document and its index entries; succeeds even if the path is unknown",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Document identifier to delete",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatsTool returns the tool definition for get_stats
func getStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_stats",
		Description: "Report document count and embedding configuration",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// refreshIndexTool returns the tool definition for refresh_index
func refreshIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "refresh_index",
		Description: "Reopen the index file to pick up external replacement",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/localsearch/internal/searcher"
	"github.com/dshills/localsearch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeDuplicatePath = -32001 // Insert on an existing path
	ErrorCodeNotConfigured = -32002 // Semantic search without a provider
	ErrorCodeEmptyQuery    = -32003 // Query parameter is empty
)

// handleIndexDocuments handles the index_documents tool invocation
func (s *Server) handleIndexDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	rawDocs, ok := args["documents"].([]interface{})
	if !ok || len(rawDocs) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "documents parameter is required", map[string]interface{}{
			"param":  "documents",
			"reason": "missing or empty",
		})
	}
	mode := getStringDefault(args, "mode", "upsert")

	indexed := 0
	var failures []string
	for _, raw := range rawDocs {
		req, err := parseDocumentRequest(raw)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}

		if mode == "insert" {
			err = s.engine.Insert(ctx, req)
		} else {
			err = s.engine.Upsert(ctx, req)
		}
		if err != nil {
			if errors.Is(err, types.ErrDuplicatePath) {
				return nil, newMCPError(ErrorCodeDuplicatePath, "document path already exists", map[string]interface{}{
					"path": req.Path,
				})
			}
			failures = append(failures, fmt.Sprintf("%s: %v", req.Path, err))
			continue
		}
		indexed++
	}

	response := map[string]interface{}{
		"indexed": indexed,
		"failed":  len(failures),
	}
	if len(failures) > 0 {
		response["errors"] = failures
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	mode := types.SearchMode(getStringDefault(args, "mode", string(types.SearchModeHybrid)))
	limit := getIntDefault(args, "limit", 10)
	filters := getStringSlice(args, "path_filters")

	results, err := s.engine.Search(ctx, query, searcher.Options{
		Mode:        mode,
		PathFilters: filters,
		Limit:       limit,
	})
	if err != nil {
		if errors.Is(err, types.ErrNotConfigured) {
			return nil, newMCPError(ErrorCodeNotConfigured, "no embedding provider configured", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": results,
		"count":   len(results),
	})), nil
}

// handleDeleteDocument handles the delete_document tool invocation
func (s *Server) handleDeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := s.engine.Delete(ctx, path); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "delete failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"path":    path,
	})), nil
}

// handleGetStats handles the get_stats tool invocation
func (s *Server) handleGetStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "stats failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"document_count":     stats.DocumentCount,
		"embedding_provider": stats.EmbeddingProvider,
		"embedding_model":    stats.EmbeddingModel,
		"dimension":          stats.Dimension,
		"build_mode":         stats.BuildMode,
	})), nil
}

// handleRefreshIndex handles the refresh_index tool invocation
func (s *Server) handleRefreshIndex(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.engine.Refresh(); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "refresh failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"refreshed": true,
	})), nil
}

// parseDocumentRequest converts a raw tool argument into a request
func parseDocumentRequest(raw interface{}) (types.DocumentRequest, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return types.DocumentRequest{}, fmt.Errorf("document must be an object")
	}
	path, _ := obj["path"].(string)
	content, _ := obj["content"].(string)
	if path == "" {
		return types.DocumentRequest{}, fmt.Errorf("document path is required")
	}

	var metadata map[string]string
	if rawMeta, ok := obj["metadata"].(map[string]interface{}); ok {
		metadata = make(map[string]string, len(rawMeta))
		for k, v := range rawMeta {
			if s, ok := v.(string); ok {
				metadata[k] = s
			}
		}
	}
	return types.DocumentRequest{Path: path, Content: content, Metadata: metadata}, nil
}

// newMCPError builds a protocol error; the framework handles encoding
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

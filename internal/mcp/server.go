// Package mcp exposes the search engine over the Model Context
// Protocol on stdio.
package mcp

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/localsearch/internal/config"
	"github.com/dshills/localsearch/internal/embedder"
	"github.com/dshills/localsearch/internal/engine"
	"github.com/dshills/localsearch/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "localsearch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the search engine
type Server struct {
	mcp    *server.MCPServer
	engine *engine.Engine
}

// NewServer builds the engine from config and registers all tools
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.EnsureDBDir(); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(embedder.Options{
		Provider:  cfg.Embedding.Provider,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		engine: engine.New(store, emb),
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve() error {
	defer func() { _ = s.engine.Close() }()
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexDocumentsTool(), s.handleIndexDocuments)
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(deleteDocumentTool(), s.handleDeleteDocument)
	s.mcp.AddTool(getStatsTool(), s.handleGetStats)
	s.mcp.AddTool(refreshIndexTool(), s.handleRefreshIndex)
}
